// internal/exif/exif.go
package exif

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	exifv3 "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	log "github.com/dsoprea/go-logging"
	"github.com/kamataryo/geotag/pkg/common"
	"github.com/rwcarlsen/goexif/exif"
)

// captureTimeLayout is the EXIF date-time text form; the date part uses colons
const captureTimeLayout = "2006:01:02 15:04:05"

// ReadCaptureTime returns the raw DateTimeOriginal text of the JPEG at path.
// ok is false when the image has no EXIF block or the field is absent.
func ReadCaptureTime(path string) (text string, ok bool, err error) {
	sl, err := parseJpeg(path)
	if err != nil {
		return "", false, common.NewError(common.KindMetadataUnreadable, path, err)
	}

	_, raw, err := sl.Exif()
	if err != nil {
		if log.Is(err, exifv3.ErrNoExif) {
			return "", false, nil
		}
		return "", false, common.NewError(common.KindMetadataUnreadable, path, err)
	}

	// The EXIF payload starts at the TIFF header, which goexif decodes directly
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return "", false, common.NewError(common.KindMetadataUnreadable, path, err)
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return "", false, nil
	}

	text, err = tag.StringVal()
	if err != nil {
		return "", false, common.NewError(common.KindMetadataUnreadable, path, fmt.Errorf("DateTimeOriginal: %w", err))
	}

	return strings.TrimRight(text, "\x00 "), true, nil
}

// ParseCaptureTime interprets EXIF date-time text as local time at the given
// UTC offset and returns seconds since the Unix epoch
func ParseCaptureTime(text string, offset time.Duration) (int64, error) {
	if len(text) < len(captureTimeLayout) {
		return 0, common.NewError(common.KindTimestampParse, "", fmt.Errorf("capture time %q is too short", text))
	}

	wall, err := time.Parse(captureTimeLayout, text[:len(captureTimeLayout)])
	if err != nil {
		return 0, common.NewError(common.KindTimestampParse, "", fmt.Errorf("capture time %q: %w", text, err))
	}

	return wall.Unix() - int64(offset/time.Second), nil
}

func parseJpeg(path string) (*jpegstructure.SegmentList, error) {
	jmp := jpegstructure.NewJpegMediaParser()

	ec, err := jmp.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse jpeg: %w", err)
	}

	sl, ok := ec.(*jpegstructure.SegmentList)
	if !ok {
		return nil, fmt.Errorf("unexpected media context %T", ec)
	}

	return sl, nil
}
