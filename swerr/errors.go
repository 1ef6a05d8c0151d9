// Package swerr defines the error taxonomy shared by the component
// model, the traversal engine and the codecs.
package swerr

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Kind represents the class of a data stream error
type Kind int

const (
	// KindStructural indicates a malformed component tree. Traversal
	// cannot proceed until the tree is fixed.
	KindStructural Kind = iota
	// KindCodec indicates a value could not be parsed or formatted
	KindCodec
	// KindSizeViolation indicates an array size or choice selection
	// outside its valid range. It is treated as a codec error.
	KindSizeViolation
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindCodec:
		return "codec"
	case KindSizeViolation:
		return "size-violation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k *Kind) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "structural":
		*k = KindStructural
	case "codec":
		*k = KindCodec
	case "size-violation":
		*k = KindSizeViolation
	default:
		return errors.Errorf("unknown error kind %q", b)
	}
	return nil
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Error is a data stream error.
type Error struct {
	Kind Kind
	// Component is the path of the component the error occurred on, if known
	Component string
	Message   string
	// Value holds the offending size or selection for size violations
	Value int64
	// Err is the underlying error, if any
	Err error
}

func (e *Error) Error() string {
	s := e.Kind.String() + " error"
	if e.Component != "" {
		s += " component:" + e.Component
	}
	if e.Kind == KindSizeViolation {
		s += fmt.Sprintf(" value:%d", e.Value)
	}
	if e.Message != "" {
		s += " " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func Structural(opts ...Option) *Error {
	e := &Error{Kind: KindStructural}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func Codec(opts ...Option) *Error {
	e := &Error{Kind: KindCodec}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func SizeViolation(value int64, opts ...Option) *Error {
	e := &Error{Kind: KindSizeViolation, Value: value}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsStructural returns true if err is a structural error.
func IsStructural(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindStructural
}

// IsCodec returns true if err is a codec error, including size violations.
func IsCodec(err error) bool {
	e, ok := As(err)
	return ok && (e.Kind == KindCodec || e.Kind == KindSizeViolation)
}

// IsSizeViolation returns true if err is a size violation.
func IsSizeViolation(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindSizeViolation
}
