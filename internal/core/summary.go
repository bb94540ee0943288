package core

import (
	"fmt"
	"time"
)

// CategoryAmount represents an amount aggregated by category code.
type CategoryAmount struct {
	Code   string
	Label  string
	Amount Money
}

// YearMonth identifies a calendar month. Navigation is unbounded in both directions.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth normalises out-of-range months, e.g. (2024, 13) becomes January 2025.
func NewYearMonth(year, month int) YearMonth {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// CurrentYearMonth returns the month containing now.
func CurrentYearMonth(now time.Time) YearMonth {
	return YearMonth{Year: now.Year(), Month: now.Month()}
}

// Add moves n months forward (or backward when n is negative).
func (ym YearMonth) Add(n int) YearMonth {
	return NewYearMonth(ym.Year, int(ym.Month)+n)
}

// Contains reports whether d falls in the same calendar year and month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

// Label renders the month for people, e.g. "March 2024".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", ym.Month.String(), ym.Year)
}

// String renders YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
