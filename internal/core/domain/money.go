package domain

import "github.com/shopspring/decimal"

// AmountTolerance is the maximum difference at which two amounts are still
// considered the same payment. Gateways occasionally report amounts with
// rounding applied on their side.
var AmountTolerance = decimal.NewFromFloat(0.01)

// SameAmount reports whether two amounts differ by less than AmountTolerance.
func SameAmount(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(AmountTolerance)
}

// ValidDepositAmount reports whether an amount is acceptable for a new
// deposit request.
func ValidDepositAmount(a decimal.Decimal) bool {
	return a.IsPositive()
}
