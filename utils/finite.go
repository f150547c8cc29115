package utils

import "math"

// IsFinite は NaN と ±Inf を弾きます。
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
