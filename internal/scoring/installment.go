package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// MonthlyInstallment computes the fixed EMI for a loan using the standard
// amortization formula:
//
//	r = (annualRate / 100) / 12
//	installment = principal * r / (1 - (1+r)^-tenure)
//
// The result is rounded to 2 decimal places with banker's rounding
// (currency precision). Callers must not invoke this with a zero tenure or
// a rate producing a zero effective monthly rate; the eligibility engine
// guarantees neither reaches this point.
func MonthlyInstallment(principal float64, tenureMonths int, annualRate float64) float64 {
	monthlyRate := annualRate / 100 / 12

	numerator := principal * monthlyRate
	denominator := 1 - math.Pow(1+monthlyRate, -float64(tenureMonths))

	raw := numerator / denominator

	return decimal.NewFromFloat(raw).RoundBank(2).InexactFloat64()
}
