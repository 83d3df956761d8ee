package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

func testTable() *ZoneTable {
	return &ZoneTable{
		small: []domain.Boundary{{Low: 10.0, High: 10.01}, {Low: 20.0, High: 20.02}, {Low: 20.0, High: 20.02}},
		large: map[int][]domain.Boundary{
			2: {{Low: 5, High: 6}},
			3: {{Low: 26.5, High: 27.0}},
			4: {{Low: 27.1, High: 27.3}},
			5: {{Low: 40, High: 42}},
			6: {{Low: 50, High: 55}},
			7: {{Low: 70, High: 80}},
		},
		combined: []domain.Boundary{
			{Low: 26.5, High: 27.0}, {Low: 27.1, High: 27.3}, {Low: 40, High: 42}, {Low: 50, High: 55},
		},
	}
}

func TestZoneClassifier_SmallZonesCrossed(t *testing.T) {
	c := NewZoneClassifier(testTable())

	// downward through 10.00..10.01
	assert.Equal(t, []domain.Boundary{{Low: 10.0, High: 10.01}}, c.SmallZonesCrossed(10.05, 9.9))
	// upward through 20.00..20.02, listed twice in the table but reported once
	assert.Equal(t, []domain.Boundary{{Low: 20.0, High: 20.02}}, c.SmallZonesCrossed(19.5, 20.5))
	// both zones in one long candle
	assert.Len(t, c.SmallZonesCrossed(9, 21), 2)

	// touching or ending inside the zone is not a crossing
	assert.False(t, c.CrossesSmallZone(10.05, 10.005))
	assert.False(t, c.CrossesSmallZone(10.0, 9.0))
	assert.False(t, c.CrossesSmallZone(30, 31))
}

func TestZoneClassifier_ContainingLargeZone(t *testing.T) {
	c := NewZoneClassifier(testTable())

	m, ok := c.ContainingLargeZone(27.15)
	assert.True(t, ok)
	assert.Equal(t, 4, m.Level)
	assert.Equal(t, domain.Boundary{Low: 27.1, High: 27.3}, m.Boundary)

	// bounds are inclusive
	m, ok = c.ContainingLargeZone(26.5)
	assert.True(t, ok)
	assert.Equal(t, 3, m.Level)

	m, ok = c.ContainingLargeZone(42)
	assert.True(t, ok)
	assert.Equal(t, 5, m.Level)

	// level 6, level 2 and level 7 are not tradeable live
	for _, p := range []float64{52, 5.5, 75} {
		_, ok = c.ContainingLargeZone(p)
		assert.False(t, ok, "price %v", p)
	}
}

func TestZoneClassifier_Locate(t *testing.T) {
	c := NewZoneClassifier(testTable())

	m, ok := c.Locate(52)
	assert.True(t, ok)
	assert.Equal(t, 6, m.Level)

	m, ok = c.Locate(5.5)
	assert.True(t, ok)
	assert.Equal(t, 2, m.Level)

	_, ok = c.Locate(99)
	assert.False(t, ok)
}

func TestPriceWithin(t *testing.T) {
	zones := testTable().CombinedTargetZones()
	assert.True(t, PriceWithin(zones, 27.0))
	assert.True(t, PriceWithin(zones, 50))
	assert.False(t, PriceWithin(zones, 27.05))
	assert.False(t, PriceWithin(nil, 1))
}
