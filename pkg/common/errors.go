package common

import (
	"errors"
	"fmt"
)

// Kind classifies a geotag failure
type Kind int

const (
	KindSourceUnavailable Kind = iota + 1
	KindMalformedSource
	KindTimestampParse
	KindNoImagesMatched
	KindOutputUnwritable
	KindMetadataUnreadable
	KindMetadataUnwritable
)

func (k Kind) String() string {
	switch k {
	case KindSourceUnavailable:
		return "source unavailable"
	case KindMalformedSource:
		return "malformed source"
	case KindTimestampParse:
		return "timestamp parse"
	case KindNoImagesMatched:
		return "no images matched"
	case KindOutputUnwritable:
		return "output unwritable"
	case KindMetadataUnreadable:
		return "metadata unreadable"
	case KindMetadataUnwritable:
		return "metadata unwritable"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind
var (
	ErrSourceUnavailable  = &Error{Kind: KindSourceUnavailable}
	ErrMalformedSource    = &Error{Kind: KindMalformedSource}
	ErrTimestampParse     = &Error{Kind: KindTimestampParse}
	ErrNoImagesMatched    = &Error{Kind: KindNoImagesMatched}
	ErrOutputUnwritable   = &Error{Kind: KindOutputUnwritable}
	ErrMetadataUnreadable = &Error{Kind: KindMetadataUnreadable}
	ErrMetadataUnwritable = &Error{Kind: KindMetadataUnwritable}
)

// Error is a geotag failure carrying the offending path and the underlying cause
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind Kind, path string, err error) error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or zero
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
