package exif

import (
	"bytes"
	"fmt"
	"os"

	exifv3 "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/kamataryo/geotag/pkg/common"
)

const gpsIfdPath = "IFD/GPSInfo"

// WriteGPS sets the GPS latitude, longitude and optional altitude fields of
// the JPEG at path and rewrites the file in place
func WriteGPS(path string, tag GPSTag) error {
	info, err := os.Stat(path)
	if err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	sl, err := parseJpeg(path)
	if err != nil {
		return common.NewError(common.KindMetadataUnreadable, path, err)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return common.NewError(common.KindMetadataUnreadable, path, err)
	}

	gpsIb, err := exifv3.GetOrCreateIbFromRootIb(rootIb, gpsIfdPath)
	if err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	if err := setGPSFields(gpsIb, tag); err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	if err := sl.SetExif(rootIb); err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return common.NewError(common.KindMetadataUnwritable, path, err)
	}

	return nil
}

type gpsField struct {
	name  string
	value interface{}
}

func setGPSFields(ib *exifv3.IfdBuilder, tag GPSTag) error {
	fields := []gpsField{
		{"GPSLatitudeRef", tag.Latitude.Ref},
		{"GPSLatitude", tag.Latitude.rationals()},
		{"GPSLongitudeRef", tag.Longitude.Ref},
		{"GPSLongitude", tag.Longitude.rationals()},
	}

	if alt := tag.Altitude; alt != nil {
		ref := byte(0)
		if alt.BelowSeaLevel {
			ref = 1
		}
		fields = append(fields,
			gpsField{"GPSAltitudeRef", []byte{ref}},
			gpsField{"GPSAltitude", []exifcommon.Rational{{Numerator: alt.Meters, Denominator: 1}}},
		)
	}

	for _, f := range fields {
		if err := ib.SetStandardWithName(f.name, f.value); err != nil {
			return fmt.Errorf("set %s: %w", f.name, err)
		}
	}

	return nil
}

func (c Coordinate) rationals() []exifcommon.Rational {
	return []exifcommon.Rational{
		{Numerator: c.Degrees, Denominator: 1},
		{Numerator: c.Minutes, Denominator: 1},
		{Numerator: c.Seconds, Denominator: SecondsDenominator},
	}
}
