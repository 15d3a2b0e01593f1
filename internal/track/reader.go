package track

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/pkg/common"
	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/net/html/charset"
)

// RawFix is one waypoint as read from the track log, before timestamp validation
type RawFix struct {
	Lat       float64
	Lon       float64
	Elevation *float64
	// Time is the <time> text as written in the document, empty when absent
	Time string
}

// Read parses the track log at path and returns every track/segment/point fix in document order
func Read(path string) ([]RawFix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewError(common.KindSourceUnavailable, path, err)
	}
	defer file.Close()

	fixes, err := Decode(file)
	if err != nil {
		var ge *common.Error
		if errors.As(err, &ge) {
			ge.Path = path
			return nil, ge
		}
		return nil, err
	}

	logger.Debug("Read %d waypoints from %s", len(fixes), path)
	return fixes, nil
}

// Decode parses a track log document from r
func Decode(r io.Reader) ([]RawFix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, common.NewError(common.KindSourceUnavailable, "", fmt.Errorf("read track log: %w", err))
	}

	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, common.NewError(common.KindMalformedSource, "", err)
	}

	times, err := pointTimes(data)
	if err != nil {
		return nil, common.NewError(common.KindMalformedSource, "", err)
	}

	return collectFixes(doc, times)
}

// rawTrack mirrors the trk/trkseg/trkpt hierarchy, keeping only the <time> text.
// gpxgo drops the zone of offset timestamps, so the text is taken from here.
type rawTrack struct {
	Segments []struct {
		Points []struct {
			Time string `xml:"time"`
		} `xml:"trkpt"`
	} `xml:"trkseg"`
}

func pointTimes(data []byte) ([][][]string, error) {
	var doc struct {
		Tracks []rawTrack `xml:"trk"`
	}
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("read waypoint times: %w", err)
	}

	times := make([][][]string, len(doc.Tracks))
	for i, trk := range doc.Tracks {
		times[i] = make([][]string, len(trk.Segments))
		for j, seg := range trk.Segments {
			for _, pt := range seg.Points {
				times[i][j] = append(times[i][j], strings.TrimSpace(pt.Time))
			}
		}
	}
	return times, nil
}

func collectFixes(doc *gpx.GPX, times [][][]string) ([]RawFix, error) {
	fixes := make([]RawFix, 0)

	if len(times) != len(doc.Tracks) {
		return nil, common.NewError(common.KindMalformedSource, "", fmt.Errorf("found %d tracks, expected %d", len(times), len(doc.Tracks)))
	}

	for i, trk := range doc.Tracks {
		if len(times[i]) != len(trk.Segments) {
			return nil, common.NewError(common.KindMalformedSource, "", fmt.Errorf("track %d: found %d segments, expected %d", i, len(times[i]), len(trk.Segments)))
		}
		for j, segment := range trk.Segments {
			if len(times[i][j]) != len(segment.Points) {
				return nil, common.NewError(common.KindMalformedSource, "", fmt.Errorf("track %d segment %d: found %d points, expected %d", i, j, len(times[i][j]), len(segment.Points)))
			}
			for k, pt := range segment.Points {
				fix := RawFix{
					Lat: pt.GetLatitude(),
					Lon: pt.GetLongitude(),
				}
				if ele := pt.GetElevation(); ele.NotNull() {
					val := ele.Value()
					fix.Elevation = &val
				}
				fix.Time = times[i][j][k]
				fixes = append(fixes, fix)
			}
		}
	}

	return fixes, nil
}
