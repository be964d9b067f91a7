package s0_data

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/clv/backend/internal/clvconfig"
	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// defaultSQL joins the five warehouse tables into one row per sale line
const defaultSQL = `
	SELECT
		s.sales_id AS sale_id,
		d.date AS date,
		c.customer_id AS customer_id,
		t.transaction_id AS transaction_id,
		p.product_category AS product_category,
		p.sku AS sku,
		s.quantity AS quantity,
		p.price AS unit_price
	FROM sales_fact s
	JOIN date d ON d.date_id = s.date_id
	JOIN product p ON p.product_id = s.product_id
	JOIN transactions t ON t.transaction_id = s.transaction_id
	JOIN customer c ON c.customer_id = s.customer_id
	ORDER BY s.sales_id
`

// ColumnSpec maps one result column of a query to a frame column
type ColumnSpec struct {
	Name     string
	Kind     frame.Kind
	Required bool // NULL 허용 안 함
}

// Query is the selection descriptor passed to a Source.
// Columns must list the result columns in SELECT order.
type Query struct {
	SQL     string
	Columns []ColumnSpec
}

// Source loads the flat transaction table (S0)
// ⭐ SSOT: S0 거래 데이터 로드 인터페이스
type Source interface {
	Load(ctx context.Context, q Query) (*frame.Frame, error)
}

// DefaultQuery returns the five-table join with result columns renamed to
// the configured column names. A non-empty override replaces the SQL text
// but must return the same eight columns in the same order.
func DefaultQuery(cols clvconfig.Columns, override string) Query {
	sqlText := defaultSQL
	if override != "" {
		sqlText = override
	}
	return Query{
		SQL: sqlText,
		Columns: []ColumnSpec{
			{Name: cols.SaleID, Kind: frame.KindInt},
			{Name: cols.Date, Kind: frame.KindTime, Required: true},
			{Name: cols.CustomerID, Kind: frame.KindInt, Required: true},
			{Name: cols.TransactionID, Kind: frame.KindInt, Required: true},
			{Name: cols.ProductCategory, Kind: frame.KindString},
			{Name: cols.SKU, Kind: frame.KindString},
			{Name: cols.Quantity, Kind: frame.KindFloat},
			{Name: cols.UnitPrice, Kind: frame.KindFloat},
		},
	}
}

// Repository loads transactions from PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// Load runs the query and returns the result as a frame
func (r *Repository) Load(ctx context.Context, q Query) (*frame.Frame, error) {
	rows, err := r.db.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", contracts.ErrDataAccess, err)
	}
	defer rows.Close()

	if n := len(rows.FieldDescriptions()); n != len(q.Columns) {
		return nil, fmt.Errorf("%w: query returned %d columns, want %d", contracts.ErrDataAccess, n, len(q.Columns))
	}

	return collect(rows, q.Columns)
}

// SQLRepository loads transactions through database/sql (MySQL / MariaDB)
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a new SQLRepository instance
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Load runs the query and returns the result as a frame
func (r *SQLRepository) Load(ctx context.Context, q Query) (*frame.Frame, error) {
	rows, err := r.db.QueryContext(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", contracts.ErrDataAccess, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read columns: %v", contracts.ErrDataAccess, err)
	}
	if len(names) != len(q.Columns) {
		return nil, fmt.Errorf("%w: query returned %d columns, want %d", contracts.ErrDataAccess, len(names), len(q.Columns))
	}

	return collect(rows, q.Columns)
}

// rowScanner is the common subset of pgx.Rows and *sql.Rows
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collect scans every row through sql.Null* holders so that pgx and
// database/sql share one conversion path.
// NULL 처리: float → NaN, string → "", time → zero, Required 컬럼은 에러
func collect(rows rowScanner, specs []ColumnSpec) (*frame.Frame, error) {
	builders := make([]*columnBuilder, len(specs))
	dest := make([]any, len(specs))
	for i, s := range specs {
		builders[i] = newColumnBuilder(s)
		dest[i] = builders[i].holder()
	}

	line := 0
	for rows.Next() {
		line++
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: scan row %d: %v", contracts.ErrDataAccess, line, err)
		}
		for _, b := range builders {
			if err := b.push(); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", contracts.ErrDataAccess, err)
	}

	cols := make([]frame.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.column()
	}
	return frame.New(cols...)
}

type columnBuilder struct {
	spec ColumnSpec

	nullInt    sql.NullInt64
	nullFloat  sql.NullFloat64
	nullString sql.NullString
	nullTime   sql.NullTime

	ints    []int64
	floats  []float64
	strings []string
	times   []time.Time
}

func newColumnBuilder(spec ColumnSpec) *columnBuilder {
	return &columnBuilder{spec: spec}
}

func (b *columnBuilder) holder() any {
	switch b.spec.Kind {
	case frame.KindInt:
		return &b.nullInt
	case frame.KindFloat:
		return &b.nullFloat
	case frame.KindString:
		return &b.nullString
	default:
		return &b.nullTime
	}
}

func (b *columnBuilder) push() error {
	var valid bool
	switch b.spec.Kind {
	case frame.KindInt:
		valid = b.nullInt.Valid
		b.ints = append(b.ints, b.nullInt.Int64)
	case frame.KindFloat:
		valid = b.nullFloat.Valid
		if valid {
			b.floats = append(b.floats, b.nullFloat.Float64)
		} else {
			b.floats = append(b.floats, math.NaN())
		}
	case frame.KindString:
		valid = b.nullString.Valid
		b.strings = append(b.strings, b.nullString.String)
	default:
		valid = b.nullTime.Valid
		b.times = append(b.times, b.nullTime.Time)
	}

	if !valid && b.spec.Required {
		return fmt.Errorf("%w: NULL in required column %q", contracts.ErrInvalidValue, b.spec.Name)
	}
	return nil
}

func (b *columnBuilder) column() frame.Column {
	switch b.spec.Kind {
	case frame.KindInt:
		return frame.IntColumn(b.spec.Name, b.ints)
	case frame.KindFloat:
		return frame.FloatColumn(b.spec.Name, b.floats)
	case frame.KindString:
		return frame.StringColumn(b.spec.Name, b.strings)
	default:
		return frame.TimeColumn(b.spec.Name, b.times)
	}
}
