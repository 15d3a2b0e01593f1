package geotag

import "time"

// OffsetProvider supplies the UTC offset used to read camera wall-clock
// capture times
type OffsetProvider interface {
	UTCOffset() time.Duration
}

// LocalOffset uses the offset of the process local zone at the current instant
type LocalOffset struct{}

func (LocalOffset) UTCOffset() time.Duration {
	_, off := time.Now().Zone()
	return time.Duration(off) * time.Second
}

// FixedOffset always returns the same offset
type FixedOffset time.Duration

func (f FixedOffset) UTCOffset() time.Duration {
	return time.Duration(f)
}
