package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by a group key
// (category, merchant, payment method).
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// TrendPoint is the total of one time bucket.
type TrendPoint struct {
	Date   time.Time
	Amount decimal.Decimal
}

// CategoryTrendPoint is the total of one (time bucket, category) group.
type CategoryTrendPoint struct {
	Date     time.Time
	Category string
	Amount   decimal.Decimal
}
