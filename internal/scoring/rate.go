package scoring

// Minimum allowable interest rates per credit score band.
const (
	midBandFloor = 12.0 // 30 < score <= 50
	lowBandFloor = 16.0 // 10 < score <= 30
)

// CorrectRate maps a credit score to the minimum allowable interest rate,
// applied as a floor over the requested rate. The second return value is
// false when the score is too low for any rate (score <= 10), which
// signals outright rejection downstream.
func CorrectRate(score int, requested float64) (float64, bool) {
	switch {
	case score > 50:
		return requested, true
	case score > 30:
		return max(requested, midBandFloor), true
	case score > 10:
		return max(requested, lowBandFloor), true
	default:
		return 0, false
	}
}
