package usecase

import (
	"fmt"
	"sort"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

const (
	frameLimit = 100.0

	SmallZoneLevel = 1
	MinLargeLevel  = 2
	MaxLargeLevel  = 7

	// Levels merged into the combined target list used by exit math.
	minTargetLevel = 3
	maxTargetLevel = 6
)

// ZoneTable is the immutable table of price-normalization zones built from a
// constant set. It is safe for concurrent reads.
type ZoneTable struct {
	frame    []float64
	mean     float64
	stdev    float64
	small    []domain.Boundary
	large    map[int][]domain.Boundary
	combined []domain.Boundary
}

// BuildZoneTable builds the frame of every multiple below 100 of each
// constant and buckets the gaps between neighbouring values by significance.
func BuildZoneTable(constants []float64) (*ZoneTable, error) {
	return buildFromFrame(constantFrame(constants))
}

func constantFrame(constants []float64) []float64 {
	var frame []float64
	for _, c := range constants {
		if c <= 0 {
			continue
		}
		for k := 1; ; k++ {
			v := c * float64(k)
			if v >= frameLimit {
				break
			}
			frame = append(frame, round(v, 5))
		}
	}
	sort.Float64s(frame)
	return frame
}

func buildFromFrame(frame []float64) (*ZoneTable, error) {
	if len(frame) < 3 {
		return nil, fmt.Errorf("zone table needs at least 2 gaps, frame has %d values: %w", len(frame), domain.ErrInsufficientHistory)
	}

	gaps := make([]float64, len(frame)-1)
	for i := 1; i < len(frame); i++ {
		gaps[i-1] = frame[i] - frame[i-1]
	}

	mean, stdev, err := meanStdev(gaps)
	if err != nil {
		return nil, fmt.Errorf("zone table: %w", err)
	}

	t := &ZoneTable{
		frame: frame,
		mean:  mean,
		stdev: stdev,
		large: make(map[int][]domain.Boundary, MaxLargeLevel-MinLargeLevel+1),
	}

	for i, gap := range gaps {
		b := domain.Boundary{Low: frame[i], High: frame[i+1]}

		// Highest qualifying level wins; the boundary is never kept at a lower one.
		for level := MaxLargeLevel; level >= MinLargeLevel; level-- {
			if gap > mean+float64(level)*stdev {
				t.large[level] = append(t.large[level], b)
				break
			}
		}

		if gap < mean-stdev {
			t.small = appendUnique(t.small, b)
		}
	}

	for level := minTargetLevel; level <= maxTargetLevel; level++ {
		t.combined = append(t.combined, t.large[level]...)
	}
	sort.SliceStable(t.combined, func(i, j int) bool {
		return t.combined[i].Low < t.combined[j].Low
	})

	return t, nil
}

func appendUnique(list []domain.Boundary, b domain.Boundary) []domain.Boundary {
	if n := len(list); n > 0 && list[n-1] == b {
		return list
	}
	return append(list, b)
}

// Level returns the zones of a significance level. Level 1 is the small zones.
func (t *ZoneTable) Level(level int) []domain.Boundary {
	if level == SmallZoneLevel {
		return t.small
	}
	return t.large[level]
}

func (t *ZoneTable) Small() []domain.Boundary {
	return t.small
}

// CombinedTargetZones returns levels 3..6 merged and sorted by their low bound.
func (t *ZoneTable) CombinedTargetZones() []domain.Boundary {
	return t.combined
}

func (t *ZoneTable) Frame() []float64 {
	return t.frame
}

func (t *ZoneTable) Mean() float64 {
	return t.mean
}

func (t *ZoneTable) Stdev() float64 {
	return t.stdev
}
