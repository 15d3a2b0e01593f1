package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/kamataryo/geotag/internal/track"
	"github.com/kamataryo/geotag/pkg/common"
)

// TimePoint is a geographic fix anchored in time
type TimePoint struct {
	Lat       float64
	Lon       float64
	Elevation *float64
	// Time is seconds since the Unix epoch, UTC
	Time int64
}

// Timeline is a sequence of fixes sorted non-decreasing by Time.
// It is read-only once built.
type Timeline []TimePoint

// Build converts raw fixes into a sorted timeline. Any unparsable or missing
// timestamp aborts the build; no partial timeline is returned.
// Fixes with equal timestamps keep their source order.
func Build(fixes []track.RawFix) (Timeline, error) {
	tl := make(Timeline, 0, len(fixes))

	for i, fix := range fixes {
		if fix.Time == "" {
			return nil, common.NewError(common.KindTimestampParse, "", fmt.Errorf("waypoint %d has no timestamp", i))
		}
		ts, err := time.Parse(time.RFC3339, fix.Time)
		if err != nil {
			return nil, common.NewError(common.KindTimestampParse, "", fmt.Errorf("waypoint %d has an invalid timestamp %q: %w", i, fix.Time, err))
		}

		point := TimePoint{
			Lat:  fix.Lat,
			Lon:  fix.Lon,
			Time: ts.Unix(),
		}
		// The timeline owns its elevations
		if fix.Elevation != nil {
			ele := *fix.Elevation
			point.Elevation = &ele
		}
		tl = append(tl, point)
	}

	sort.SliceStable(tl, func(i, j int) bool {
		return tl[i].Time < tl[j].Time
	})

	return tl, nil
}

// Bounds returns the first and last timestamps
func (tl Timeline) Bounds() (int64, int64) {
	if len(tl) == 0 {
		return 0, 0
	}
	return tl[0].Time, tl[len(tl)-1].Time
}

// Interpolate returns the linearly interpolated fix at query. It reports false
// when there are fewer than two points, when query falls outside the timeline,
// or when query equals the time of an existing point: only a strict bracket
// t[i] < query < t[i+1] produces a fix.
func (tl Timeline) Interpolate(query int64) (TimePoint, bool) {
	if len(tl) < 2 {
		return TimePoint{}, false
	}

	idx := sort.Search(len(tl), func(i int) bool {
		return tl[i].Time >= query
	})
	if idx == 0 || idx == len(tl) || tl[idx].Time == query {
		return TimePoint{}, false
	}

	prev, next := tl[idx-1], tl[idx]
	t1, t2 := prev.Time, next.Time
	span := float64(t2 - t1)
	w1 := float64(t2 - query)
	w2 := float64(query - t1)

	result := TimePoint{
		Lat:  (prev.Lat*w1 + next.Lat*w2) / span,
		Lon:  (prev.Lon*w1 + next.Lon*w2) / span,
		Time: query,
	}
	if prev.Elevation != nil && next.Elevation != nil {
		ele := (*prev.Elevation*w1 + *next.Elevation*w2) / span
		result.Elevation = &ele
	}

	return result, true
}
