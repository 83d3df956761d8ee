package domain

import "time"

// Boundary is one price-normalization zone in scaled-price space.
type Boundary struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether price lies inside the zone, bounds included.
func (b Boundary) Contains(price float64) bool {
	return b.Low <= price && price <= b.High
}

func (b Boundary) Mid() float64 {
	return (b.Low + b.High) / 2
}

func (b Boundary) Width() float64 {
	return b.High - b.Low
}

// ZoneMatch is a zone together with its significance level.
type ZoneMatch struct {
	Level    int      `json:"level"`
	Boundary Boundary `json:"boundary"`
}

// ZScore is the volume Z-score of one timeframe. Valid is false when the
// history was too short (or flat) to compute a standard deviation.
type ZScore struct {
	Timeframe string  `json:"timeframe"`
	Value     float64 `json:"value"`
	Valid     bool    `json:"valid"`
}

// ZScoreRecord holds the Z-scores of all configured timeframes for a symbol.
type ZScoreRecord struct {
	Symbol       string    `json:"symbol"`
	Scores       []ZScore  `json:"scores"`
	CalculatedAt time.Time `json:"calculated_at"`
}

func (r ZScoreRecord) Get(timeframe string) (ZScore, bool) {
	for _, z := range r.Scores {
		if z.Timeframe == timeframe {
			return z, true
		}
	}
	return ZScore{}, false
}

// AnyAbove reports whether at least one valid score exceeds threshold.
func (r ZScoreRecord) AnyAbove(threshold float64) bool {
	for _, z := range r.Scores {
		if z.Valid && z.Value > threshold {
			return true
		}
	}
	return false
}
