package clvconfig

// Config는 CLV 분석 한 회차의 전체 파라미터
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Data     Data     `yaml:"data" json:"data"`
	Columns  Columns  `yaml:"columns" json:"columns"`
	Summary  Summary  `yaml:"summary" json:"summary"`
	Features Features `yaml:"features" json:"features"`
	Model    Model    `yaml:"model" json:"model"`
	CLTV     CLTV     `yaml:"cltv" json:"cltv"`
	Segment  Segment  `yaml:"segment" json:"segment"`
}

// Meta 메타 정보
type Meta struct {
	AnalysisID string `yaml:"analysis_id" json:"analysis_id"`
	Version    string `yaml:"version" json:"version"`
}

// Data S0: 로드 쿼리 및 품질 기준
type Data struct {
	Query           string  `yaml:"query" json:"query"` // 비어 있으면 기본 5-테이블 조인
	MinQualityScore float64 `yaml:"min_quality_score" json:"min_quality_score"`
}

// Columns 입력 테이블 컬럼명
type Columns struct {
	SaleID          string `yaml:"sale_id" json:"sale_id"`
	Date            string `yaml:"date" json:"date"`
	CustomerID      string `yaml:"customer_id" json:"customer_id"`
	TransactionID   string `yaml:"transaction_id" json:"transaction_id"`
	ProductCategory string `yaml:"product_category" json:"product_category"`
	SKU             string `yaml:"sku" json:"sku"`
	Quantity        string `yaml:"quantity" json:"quantity"`
	UnitPrice       string `yaml:"unit_price" json:"unit_price"`
}

// Summary S1: 결정적 CLV
type Summary struct {
	ProfitMarginRate float64 `yaml:"profit_margin_rate" json:"profit_margin_rate"`
}

// Features S2: 관측 기준일
type Features struct {
	ObservationDate string `yaml:"observation_date" json:"observation_date"` // YYYY-MM-DD, 비어 있으면 데이터 최대일
	OffsetDays      int    `yaml:"offset_days" json:"offset_days"`
}

// Model S3: BG/NBD, Gamma-Gamma
type Model struct {
	Unit                string  `yaml:"unit" json:"unit"` // H, D, W, M
	BGNBDPenalizer      float64 `yaml:"bgnbd_penalizer" json:"bgnbd_penalizer"`
	GammaGammaPenalizer float64 `yaml:"gamma_gamma_penalizer" json:"gamma_gamma_penalizer"`
	MaxIterations       int     `yaml:"max_iterations" json:"max_iterations"`
	PurchaseHorizon     float64 `yaml:"purchase_horizon" json:"purchase_horizon"` // unit 기간 수
}

// CLTV S3: 할인 CLV 예측
type CLTV struct {
	Months       int     `yaml:"months" json:"months"`
	DiscountRate float64 `yaml:"discount_rate" json:"discount_rate"` // 월 할인율
}

// Segment S4: 분위수 세그먼트
type Segment struct {
	Labels []string `yaml:"labels" json:"labels"` // 낮은 값 → 높은 값 순서
}

// Default returns the parameters used when no YAML file is given
func Default() *Config {
	return &Config{
		Meta: Meta{
			AnalysisID: "clv_default",
			Version:    "1",
		},
		Data: Data{
			MinQualityScore: 0.7,
		},
		Columns: Columns{
			SaleID:          "sale_id",
			Date:            "date",
			CustomerID:      "customer_id",
			TransactionID:   "transaction_id",
			ProductCategory: "product_category",
			SKU:             "sku",
			Quantity:        "quantity",
			UnitPrice:       "unit_price",
		},
		Summary: Summary{
			ProfitMarginRate: 0.10,
		},
		Features: Features{
			OffsetDays: 1,
		},
		Model: Model{
			Unit:                "W",
			BGNBDPenalizer:      0.001,
			GammaGammaPenalizer: 0.01,
			MaxIterations:       2000,
			PurchaseHorizon:     1,
		},
		CLTV: CLTV{
			Months:       12,
			DiscountRate: 0.01,
		},
		Segment: Segment{
			Labels: []string{"D", "C", "B", "A"},
		},
	}
}
