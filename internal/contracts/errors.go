package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage
// ⭐ SSOT: 에러 분류는 여기서만 정의
var (
	// ErrMissingColumn a required input column is absent
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyInput zero rows where at least one is required
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidValue division by zero, non-finite or out-of-range values
	ErrInvalidValue = errors.New("invalid value")

	// ErrModelFit the estimator rejected its input or did not converge
	ErrModelFit = errors.New("model fit failed")

	// ErrDataAccess the relational store could not resolve the query
	ErrDataAccess = errors.New("data access failed")
)

// MissingColumnError names the column that was required but absent.
// errors.Is(err, ErrMissingColumn) reports true for it.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// Is matches ErrMissingColumn
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// MissingColumn returns a MissingColumnError for the given column
func MissingColumn(column string) error {
	return &MissingColumnError{Column: column}
}
