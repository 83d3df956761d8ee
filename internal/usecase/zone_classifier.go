package usecase

import "github.com/vitos/crypto_liquidation_zones/internal/domain"

// Levels checked by the live "is the close inside a large zone" test.
// Level 6 takes part in exit math only.
var liveLargeLevels = []int{3, 4, 5}

type ZoneClassifier struct {
	table *ZoneTable
}

func NewZoneClassifier(table *ZoneTable) *ZoneClassifier {
	return &ZoneClassifier{table: table}
}

func (c *ZoneClassifier) Table() *ZoneTable {
	return c.table
}

// SmallZonesCrossed returns every small zone the candle went cleanly through,
// from above its high to below its low or the other way round.
func (c *ZoneClassifier) SmallZonesCrossed(open, close float64) []domain.Boundary {
	var crossed []domain.Boundary
	seen := make(map[domain.Boundary]struct{})
	for _, b := range c.table.Small() {
		if _, ok := seen[b]; ok {
			continue
		}
		crossUnder := open > b.High && close < b.Low
		crossOver := open < b.Low && close > b.High
		if crossUnder || crossOver {
			seen[b] = struct{}{}
			crossed = append(crossed, b)
		}
	}
	return crossed
}

func (c *ZoneClassifier) CrossesSmallZone(open, close float64) bool {
	return len(c.SmallZonesCrossed(open, close)) > 0
}

// ContainingLargeZone returns the first level 3, 4 or 5 zone containing price.
func (c *ZoneClassifier) ContainingLargeZone(price float64) (domain.ZoneMatch, bool) {
	for _, level := range liveLargeLevels {
		for _, b := range c.table.Level(level) {
			if b.Contains(price) {
				return domain.ZoneMatch{Level: level, Boundary: b}, true
			}
		}
	}
	return domain.ZoneMatch{}, false
}

// Locate scans every large level, lowest first. Reporting only.
func (c *ZoneClassifier) Locate(price float64) (domain.ZoneMatch, bool) {
	for level := MinLargeLevel; level <= MaxLargeLevel; level++ {
		for _, b := range c.table.Level(level) {
			if b.Contains(price) {
				return domain.ZoneMatch{Level: level, Boundary: b}, true
			}
		}
	}
	return domain.ZoneMatch{}, false
}

// PriceWithin reports whether price is inside any of the boundaries.
func PriceWithin(boundaries []domain.Boundary, price float64) bool {
	for _, b := range boundaries {
		if b.Contains(price) {
			return true
		}
	}
	return false
}
