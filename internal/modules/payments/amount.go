package payments

import (
	"math"
	"strconv"
)

// minorUnits converts a major-unit amount to the smallest currency unit
// (paise, cents). The stored order amount never carries this encoding.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// majorString renders a major-unit amount the way form-post gateways expect
// it, with exactly two decimals.
func majorString(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
