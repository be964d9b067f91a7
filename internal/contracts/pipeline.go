package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 리포트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Data  Summary  Features  Model  Segment

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 거래 데이터 로드 및 품질 확인
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageSummary S1: 고객별 요약 및 결정적 CLV
	// 위치: internal/s1_summary/
	StageSummary Stage = "S1_SUMMARY"

	// StageFeatures S2: frequency / recency / T / monetary
	// 위치: internal/s2_features/
	StageFeatures Stage = "S2_FEATURES"

	// StageModel S3: BG/NBD + Gamma-Gamma 적합 및 예측
	// 위치: internal/s3_model/
	StageModel Stage = "S3_MODEL"

	// StageSegment S4: 세그먼트 분류 및 리포트
	// 위치: internal/s4_segment/
	StageSegment Stage = "S4_SEGMENT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageSummary:
		return "S1"
	case StageFeatures:
		return "S2"
	case StageModel:
		return "S3"
	case StageSegment:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageData:
		return "거래 데이터 로드/품질 확인"
	case StageSummary:
		return "고객 요약/CLV"
	case StageFeatures:
		return "확률 모델 피처"
	case StageModel:
		return "BG/NBD, Gamma-Gamma 예측"
	case StageSegment:
		return "세그먼트 분류"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageSummary,
		StageFeatures,
		StageModel,
		StageSegment,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
