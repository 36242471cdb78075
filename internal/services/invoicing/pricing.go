package invoicing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyDiscounts takes the flat discount off amount first and then the
// percentage of what remains. The result is rounded to currency precision.
func ApplyDiscounts(amount, flat, percentage decimal.Decimal) decimal.Decimal {
	total := amount.Sub(flat)
	if percentage.IsPositive() {
		total = total.Sub(total.Mul(percentage).Div(hundred))
	}
	return total.Round(2)
}

// LineTotal prices one invoice line.
func LineTotal(unitPrice decimal.Decimal, quantity int, flat, percentage decimal.Decimal) decimal.Decimal {
	return ApplyDiscounts(unitPrice.Mul(decimal.NewFromInt(int64(quantity))), flat, percentage)
}

// ChangePercentage is the relative change from previous to current in
// percent. A non-positive previous value yields 0.
func ChangePercentage(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	ratio := current.Sub(previous).DivRound(previous, 4)
	value, _ := ratio.Mul(hundred).Float64()
	return value
}
