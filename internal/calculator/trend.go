package calculator

// LeastSquaresSlope fits y = a + b*x over equally spaced observations
// (x = 0..n-1) and returns b.
//
// Fewer than two observations have no defined slope; 0 is returned.
func LeastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
