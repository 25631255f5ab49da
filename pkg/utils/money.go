package utils

import "math"

// RoundMoney rounds half away from zero to 2 decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
