package exif

import (
	"math"
)

// SecondsDenominator keeps five decimal digits of arc-second precision
const SecondsDenominator = 100000

// Coordinate is a signed decimal degree value split into a hemisphere
// reference and a degrees/minutes/seconds rational triple
type Coordinate struct {
	Ref     string
	Degrees uint32
	Minutes uint32
	// Seconds is scaled by SecondsDenominator
	Seconds uint32
}

// Altitude is an elevation in whole meters with its sea-level reference
type Altitude struct {
	// BelowSeaLevel maps to GPSAltitudeRef 1
	BelowSeaLevel bool
	Meters        uint32
}

// EncodeLatitude encodes a latitude; zero is north
func EncodeLatitude(lat float64) Coordinate {
	return encode(lat, "N", "S")
}

// EncodeLongitude encodes a longitude; zero is east
func EncodeLongitude(lon float64) Coordinate {
	return encode(lon, "E", "W")
}

func encode(value float64, pos, neg string) Coordinate {
	ref := pos
	if value < 0 {
		ref = neg
	}

	magnitude := math.Abs(value)
	degrees := math.Floor(magnitude)
	minutesFull := (magnitude - degrees) * 60
	minutes := math.Floor(minutesFull)
	seconds := math.Round((minutesFull - minutes) * 60 * SecondsDenominator)

	return Coordinate{
		Ref:     ref,
		Degrees: uint32(degrees),
		Minutes: uint32(minutes),
		Seconds: uint32(seconds),
	}
}

// Decimal converts the encoded coordinate back to signed decimal degrees
func (c Coordinate) Decimal() float64 {
	v := float64(c.Degrees) + float64(c.Minutes)/60 + float64(c.Seconds)/SecondsDenominator/3600
	if c.Ref == "S" || c.Ref == "W" {
		return -v
	}
	return v
}

// EncodeAltitude encodes an elevation. The fractional part is truncated, not rounded.
func EncodeAltitude(elevation float64) Altitude {
	return Altitude{
		BelowSeaLevel: elevation < 0,
		Meters:        uint32(math.Trunc(math.Abs(elevation))),
	}
}

// GPSTag is the set of GPS fields written into one image
type GPSTag struct {
	Latitude  Coordinate
	Longitude Coordinate
	Altitude  *Altitude
}

// NewGPSTag encodes an interpolated position; elevation may be nil
func NewGPSTag(lat, lon float64, elevation *float64) GPSTag {
	tag := GPSTag{
		Latitude:  EncodeLatitude(lat),
		Longitude: EncodeLongitude(lon),
	}
	if elevation != nil {
		alt := EncodeAltitude(*elevation)
		tag.Altitude = &alt
	}
	return tag
}
