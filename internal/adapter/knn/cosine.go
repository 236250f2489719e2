package knn

import "math"

// cosineDistance returns 1 - cos(a, b) clamped to [0, 2] from the dot
// product and squared norms, so that identical vectors, whose dot product
// equals both squared norms bit for bit, land exactly on zero. Two all-zero
// vectors are at distance 0; an all-zero vector is at distance 1 from any
// other vector.
func cosineDistance(dot, na, nb float64) float64 {
	switch {
	case na == 0 && nb == 0:
		return 0
	case na == 0 || nb == 0:
		return 1
	}
	d := 1 - dot/math.Sqrt(na*nb)
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
