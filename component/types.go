package component

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the structural kind of a Component
type Kind int

const (
	// KindScalar is an atomic leaf
	KindScalar Kind = iota
	// KindRecord is a fixed ordered list of named fields
	KindRecord
	// KindArray is a homogeneous repeated element
	KindArray
	// KindChoice is a single selected item among named alternatives
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindArray:
		return "array"
	case KindChoice:
		return "choice"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DataType is the primitive type of a scalar value
type DataType int

const (
	Bool DataType = iota
	Byte
	UByte
	Short
	UShort
	Int
	UInt
	Long
	ULong
	Float
	Double
	String
)

var dataTypeNames = [...]string{
	Bool:   "boolean",
	Byte:   "byte",
	UByte:  "ubyte",
	Short:  "short",
	UShort: "ushort",
	Int:    "int",
	UInt:   "uint",
	Long:   "long",
	ULong:  "ulong",
	Float:  "float",
	Double: "double",
	String: "string",
}

func (t DataType) valid() bool { return t >= Bool && t <= String }

func (t DataType) String() string {
	if t.valid() {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

func (t DataType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *DataType) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	for i, name := range dataTypeNames {
		if string(b) == name {
			*t = DataType(i)
			return nil
		}
	}
	return errors.Errorf("unknown data type %q", b)
}

// Size returns the fixed encoded width of the type in bytes, or -1 for
// variable width types.
func (t DataType) Size() int {
	switch t {
	case Bool, Byte, UByte:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt, Float:
		return 4
	case Long, ULong, Double:
		return 8
	}
	return -1
}

// IsInteger returns true for signed and unsigned integer types
func (t DataType) IsInteger() bool { return t >= Byte && t <= ULong }

// IsUnsigned returns true for unsigned integer types
func (t DataType) IsUnsigned() bool {
	return t == UByte || t == UShort || t == UInt || t == ULong
}

// IsFloat returns true for floating point types
func (t DataType) IsFloat() bool { return t == Float || t == Double }

// IsNumeric returns true for integer and floating point types
func (t DataType) IsNumeric() bool { return t.IsInteger() || t.IsFloat() }

// bits is the width used for range checks and strconv
func (t DataType) bits() int {
	if s := t.Size(); s > 0 {
		return s * 8
	}
	return 64
}
