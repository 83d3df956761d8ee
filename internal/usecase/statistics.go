package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

// meanStdev returns the mean and the sample standard deviation (N-1).
func meanStdev(values []float64) (float64, float64, error) {
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("stdev over %d samples: %w", len(values), domain.ErrInsufficientHistory)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)-1)), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
