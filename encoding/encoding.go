// Package encoding describes how data blocks are encoded on the wire.
package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Encoding is a data encoding descriptor. It is opaque to the
// traversal engine and interpreted by codecs.
type Encoding interface {
	// Name returns the encoding's name, "text" or "binary"
	Name() string
}

// TextEncoding describes delimiter separated text.
type TextEncoding struct {
	// TokenSeparator separates the values of a record
	TokenSeparator string `yaml:"token_separator"`
	// BlockSeparator ends each record
	BlockSeparator string `yaml:"block_separator"`
	// DecimalSeparator replaces '.' in floating point values
	DecimalSeparator string `yaml:"decimal_separator"`
	// CollapseWhiteSpaces makes runs of white space count as one, and
	// ignores white space around separators.
	CollapseWhiteSpaces bool `yaml:"collapse_white_spaces"`
}

// DefaultTextEncoding returns comma separated values, one record per
// line.
func DefaultTextEncoding() *TextEncoding {
	return &TextEncoding{
		TokenSeparator:      ",",
		BlockSeparator:      "\n",
		DecimalSeparator:    ".",
		CollapseWhiteSpaces: true,
	}
}

func (e *TextEncoding) Name() string { return "text" }

// Validate returns an error if the separators are unusable
func (e *TextEncoding) Validate() error {
	switch {
	case e.TokenSeparator == "":
		return errors.New("text encoding: empty token separator")
	case e.BlockSeparator == "":
		return errors.New("text encoding: empty block separator")
	case e.TokenSeparator == e.BlockSeparator:
		return errors.Errorf("text encoding: token and block separators are both %q", e.TokenSeparator)
	case len(e.DecimalSeparator) > 1:
		return errors.Errorf("text encoding: decimal separator %q is not a single character", e.DecimalSeparator)
	}
	dec := e.DecimalSeparator
	if dec == "" {
		dec = "."
	}
	if strings.Contains(e.TokenSeparator, dec) || strings.Contains(e.BlockSeparator, dec) {
		return errors.Errorf("text encoding: decimal separator %q appears in a token or block separator", dec)
	}
	return nil
}

// ByteOrder is the byte order of binary encoded numbers
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "bigEndian"
	case LittleEndian:
		return "littleEndian"
	}
	return fmt.Sprintf("ByteOrder(%d)", int(o))
}

func (o ByteOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *ByteOrder) UnmarshalText(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "bigEndian", "big":
		*o = BigEndian
	case "littleEndian", "little":
		*o = LittleEndian
	default:
		return errors.Errorf("unknown byte order %q", b)
	}
	return nil
}

// ByteEncoding is the transfer encoding of a binary stream
type ByteEncoding int

const (
	Raw ByteEncoding = iota
	Base64
)

func (e ByteEncoding) String() string {
	switch e {
	case Raw:
		return "raw"
	case Base64:
		return "base64"
	}
	return fmt.Sprintf("ByteEncoding(%d)", int(e))
}

func (e ByteEncoding) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *ByteEncoding) UnmarshalText(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "raw":
		*e = Raw
	case "base64":
		*e = Base64
	default:
		return errors.Errorf("unknown byte encoding %q", b)
	}
	return nil
}

// BinaryEncoding describes fixed width binary values.
type BinaryEncoding struct {
	ByteOrder    ByteOrder    `yaml:"byte_order"`
	ByteEncoding ByteEncoding `yaml:"byte_encoding"`
}

func (e *BinaryEncoding) Name() string { return "binary" }
