package contracts

import (
	"fmt"
	"strings"
)

// TimeUnit is the period granularity the repeat-purchase model is fitted in
type TimeUnit string

const (
	UnitHour  TimeUnit = "H"
	UnitDay   TimeUnit = "D"
	UnitWeek  TimeUnit = "W"
	UnitMonth TimeUnit = "M"
)

// ParseTimeUnit accepts H, D, W or M (case-insensitive)
func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("%w: time unit %q (want H, D, W or M)", ErrInvalidValue, s)
	}
	return u, nil
}

// Valid reports whether u is a known unit
func (u TimeUnit) Valid() bool {
	switch u {
	case UnitHour, UnitDay, UnitWeek, UnitMonth:
		return true
	}
	return false
}

// FromDays converts a duration in days into periods of u.
// 한 달은 30일로 계산
func (u TimeUnit) FromDays(days float64) float64 {
	switch u {
	case UnitHour:
		return days * 24
	case UnitWeek:
		return days / 7
	case UnitMonth:
		return days / 30
	default:
		return days
	}
}

// PeriodsPerMonth is the number of u-periods in one month of a CLV horizon
func (u TimeUnit) PeriodsPerMonth() float64 {
	switch u {
	case UnitHour:
		return 720
	case UnitDay:
		return 30
	case UnitWeek:
		return 4.345
	default:
		return 1
	}
}

// String returns the unit code
func (u TimeUnit) String() string {
	return string(u)
}
