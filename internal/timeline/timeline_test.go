package timeline

import (
	"errors"
	"testing"

	"github.com/kamataryo/geotag/internal/track"
	"github.com/kamataryo/geotag/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ele(v float64) *float64 {
	return &v
}

func exampleTimeline() Timeline {
	return Timeline{
		{Time: 100, Lat: 10.0, Lon: 20.0, Elevation: ele(5.0)},
		{Time: 200, Lat: 10.0, Lon: 21.0, Elevation: ele(15.0)},
	}
}

func TestBuild_SortsByTime(t *testing.T) {
	fixes := []track.RawFix{
		{Lat: 3, Lon: 3, Time: "2024-05-01T10:00:20Z"},
		{Lat: 1, Lon: 1, Time: "2024-05-01T10:00:00Z"},
		{Lat: 2, Lon: 2, Time: "2024-05-01T19:00:10+09:00"},
	}

	tl, err := Build(fixes)
	require.NoError(t, err)
	require.Len(t, tl, 3)

	assert.Equal(t, []float64{1, 2, 3}, []float64{tl[0].Lat, tl[1].Lat, tl[2].Lat})
	assert.Equal(t, int64(1714557600), tl[0].Time)
	assert.Equal(t, int64(1714557610), tl[1].Time)
}

func TestBuild_DropsSubSecondPrecision(t *testing.T) {
	tl, err := Build([]track.RawFix{{Time: "2024-05-01T10:00:00.900Z"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1714557600), tl[0].Time)
}

func TestBuild_EqualTimestampsKeepSourceOrder(t *testing.T) {
	fixes := []track.RawFix{
		{Lat: 2, Time: "2024-05-01T10:00:05Z"},
		{Lat: 10, Time: "2024-05-01T10:00:00Z"},
		{Lat: 11, Time: "2024-05-01T10:00:00Z"},
		{Lat: 12, Time: "2024-05-01T10:00:00Z"},
	}

	tl, err := Build(fixes)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11, 12, 2}, []float64{tl[0].Lat, tl[1].Lat, tl[2].Lat, tl[3].Lat})
}

func TestBuild_MissingTimestampAborts(t *testing.T) {
	fixes := []track.RawFix{
		{Lat: 1, Time: "2024-05-01T10:00:00Z"},
		{Lat: 2},
	}

	tl, err := Build(fixes)
	assert.Nil(t, tl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTimestampParse))
	assert.Contains(t, err.Error(), "waypoint 1 has no timestamp")
}

func TestBuild_UnparsableTimestampAborts(t *testing.T) {
	tl, err := Build([]track.RawFix{{Time: "yesterday"}})
	assert.Nil(t, tl)
	assert.True(t, errors.Is(err, common.ErrTimestampParse))
	assert.Contains(t, err.Error(), `waypoint 0 has an invalid timestamp "yesterday"`)
	assert.NotContains(t, err.Error(), "no timestamp")
}

func TestBuild_OffsetTimestampsConvertToUTC(t *testing.T) {
	tl, err := Build([]track.RawFix{
		{Time: "2024-05-01T19:00:00+09:00"},
		{Time: "2024-05-01T06:00:01-04:00"},
		{Time: "2024-05-01T19:00:02.500+09:00"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1714557600), tl[0].Time)
	assert.Equal(t, int64(1714557601), tl[1].Time)
	assert.Equal(t, int64(1714557602), tl[2].Time)
}

func TestBuild_CopiesElevation(t *testing.T) {
	ele := 12.0
	fixes := []track.RawFix{{Elevation: &ele, Time: "2024-05-01T10:00:00Z"}}

	tl, err := Build(fixes)
	require.NoError(t, err)

	ele = 99
	require.NotNil(t, tl[0].Elevation)
	assert.Equal(t, 12.0, *tl[0].Elevation)
	assert.NotSame(t, fixes[0].Elevation, tl[0].Elevation)
}

func TestInterpolate_Midpoint(t *testing.T) {
	p, ok := exampleTimeline().Interpolate(150)
	require.True(t, ok)

	assert.InDelta(t, 10.0, p.Lat, 1e-12)
	assert.InDelta(t, 20.5, p.Lon, 1e-12)
	require.NotNil(t, p.Elevation)
	assert.InDelta(t, 10.0, *p.Elevation, 1e-12)
	assert.Equal(t, int64(150), p.Time)
}

func TestInterpolate_WeightedAverage(t *testing.T) {
	tl := Timeline{
		{Time: 0, Lat: 0, Lon: 0},
		{Time: 10, Lat: 1, Lon: -2},
		{Time: 40, Lat: 4, Lon: 4},
	}

	p, ok := tl.Interpolate(25)
	require.True(t, ok)
	// (1*15 + 4*15) / 30
	assert.InDelta(t, 2.5, p.Lat, 1e-12)
	// (-2*15 + 4*15) / 30
	assert.InDelta(t, 1.0, p.Lon, 1e-12)

	p, ok = tl.Interpolate(1)
	require.True(t, ok)
	assert.InDelta(t, 0.1, p.Lat, 1e-12)
	assert.InDelta(t, -0.2, p.Lon, 1e-12)
}

func TestInterpolate_ExactMatchIsNoFix(t *testing.T) {
	tl := exampleTimeline()

	_, ok := tl.Interpolate(100)
	assert.False(t, ok)
	_, ok = tl.Interpolate(200)
	assert.False(t, ok)

	inner := Timeline{{Time: 0}, {Time: 10}, {Time: 20}}
	_, ok = inner.Interpolate(10)
	assert.False(t, ok)
}

func TestInterpolate_OutsideRange(t *testing.T) {
	tl := exampleTimeline()

	_, ok := tl.Interpolate(99)
	assert.False(t, ok)
	_, ok = tl.Interpolate(201)
	assert.False(t, ok)
}

func TestInterpolate_TooFewPoints(t *testing.T) {
	_, ok := Timeline{}.Interpolate(0)
	assert.False(t, ok)

	_, ok = Timeline{{Time: 100}}.Interpolate(100)
	assert.False(t, ok)
}

func TestInterpolate_ElevationOnlyWhenBothPresent(t *testing.T) {
	tl := Timeline{
		{Time: 0, Elevation: ele(10)},
		{Time: 10},
		{Time: 20, Elevation: ele(30)},
		{Time: 30, Elevation: ele(50)},
	}

	p, ok := tl.Interpolate(5)
	require.True(t, ok)
	assert.Nil(t, p.Elevation)

	p, ok = tl.Interpolate(15)
	require.True(t, ok)
	assert.Nil(t, p.Elevation)

	p, ok = tl.Interpolate(25)
	require.True(t, ok)
	require.NotNil(t, p.Elevation)
	assert.InDelta(t, 40, *p.Elevation, 1e-12)
}

func TestInterpolate_DuplicateTimestampsBracketing(t *testing.T) {
	tl := Timeline{
		{Time: 0, Lat: 0},
		{Time: 10, Lat: 1},
		{Time: 10, Lat: 2},
		{Time: 20, Lat: 4},
	}

	// The first bracketing pair in timeline order is used
	p, ok := tl.Interpolate(15)
	require.True(t, ok)
	assert.InDelta(t, 3.0, p.Lat, 1e-12)

	p, ok = tl.Interpolate(5)
	require.True(t, ok)
	assert.InDelta(t, 0.5, p.Lat, 1e-12)
}

func TestInterpolate_MatchesLinearScan(t *testing.T) {
	tl := Timeline{
		{Time: 3, Lat: 1, Lon: 5},
		{Time: 7, Lat: 2, Lon: 4},
		{Time: 7, Lat: 9, Lon: 9},
		{Time: 12, Lat: -3, Lon: 1},
		{Time: 30, Lat: 6, Lon: 0},
	}

	for q := int64(0); q <= 33; q++ {
		want, wantOK := linearScan(tl, q)
		got, gotOK := tl.Interpolate(q)
		require.Equal(t, wantOK, gotOK, "query %d", q)
		if wantOK {
			assert.InDelta(t, want.Lat, got.Lat, 1e-12, "query %d", q)
			assert.InDelta(t, want.Lon, got.Lon, 1e-12, "query %d", q)
		}
	}
}

// linearScan is the reference bracket search: first i with t[i] < q < t[i+1]
func linearScan(tl Timeline, q int64) (TimePoint, bool) {
	for i := 0; i+1 < len(tl); i++ {
		a, b := tl[i], tl[i+1]
		if a.Time < q && q < b.Time {
			span := float64(b.Time - a.Time)
			return TimePoint{
				Lat: (a.Lat*float64(b.Time-q) + b.Lat*float64(q-a.Time)) / span,
				Lon: (a.Lon*float64(b.Time-q) + b.Lon*float64(q-a.Time)) / span,
			}, true
		}
	}
	return TimePoint{}, false
}

func TestBounds(t *testing.T) {
	first, last := exampleTimeline().Bounds()
	assert.Equal(t, int64(100), first)
	assert.Equal(t, int64(200), last)

	first, last = Timeline{}.Bounds()
	assert.Zero(t, first)
	assert.Zero(t, last)
}
