package usecase

import "math"

// scaleLadder holds the powers of ten 1e-12 .. 1e9, ascending.
var scaleLadder = func() []float64 {
	ladder := make([]float64, 0, 22)
	for exp := -12; exp <= 9; exp++ {
		ladder = append(ladder, math.Pow10(exp))
	}
	return ladder
}()

// ScaleFactor returns the first ladder step s with s <= price < 100*s.
// Prices outside the ladder (including non-positive ones) get a factor of 1.
func ScaleFactor(price float64) float64 {
	for _, s := range scaleLadder {
		if s <= price && price < s*100 {
			return s
		}
	}
	return 1
}

// Scale maps price onto the dimensionless 0..100 range of the zone table.
func Scale(price float64) float64 {
	return price / ScaleFactor(price)
}

// ScaleCandle scales an open/close pair with the factor of the lower of the
// two, so both sides of the candle land on the same grid.
func ScaleCandle(open, close float64) (scaledOpen, scaledClose, factor float64) {
	factor = ScaleFactor(math.Min(open, close))
	return open / factor, close / factor, factor
}
