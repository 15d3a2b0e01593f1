// Package exiftest builds small JPEG fixtures for tests
package exiftest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	exifv3 "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/stretchr/testify/require"
)

// WritePlainJPEG writes a JPEG without any EXIF block
func WritePlainJPEG(tb testing.TB, path string) {
	tb.Helper()
	require.NoError(tb, os.WriteFile(path, encode(tb), 0644))
}

// WriteJPEG writes a JPEG carrying an EXIF block. When captureTime is empty
// the block has no DateTimeOriginal field.
func WriteJPEG(tb testing.TB, path string, captureTime string) {
	tb.Helper()

	ec, err := jpegstructure.NewJpegMediaParser().ParseBytes(encode(tb))
	require.NoError(tb, err)
	sl := ec.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	require.NoError(tb, err)
	require.NoError(tb, rootIb.SetStandardWithName("Make", "geotag-test"))

	if captureTime != "" {
		exifIb, err := exifv3.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		require.NoError(tb, err)
		require.NoError(tb, exifIb.SetStandardWithName("DateTimeOriginal", captureTime))
	}

	require.NoError(tb, sl.SetExif(rootIb))

	var out bytes.Buffer
	require.NoError(tb, sl.Write(&out))
	require.NoError(tb, os.WriteFile(path, out.Bytes(), 0644))
}

func encode(tb testing.TB) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(tb, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
