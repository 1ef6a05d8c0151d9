package component

import (
	"math"
	"strconv"

	"github.com/andaru/swecommon/swerr"
)

// Value is a typed atomic value stored in a DataBlock.
//
// Integer and boolean values keep their bits in n, floating point
// values keep their IEEE 754 bits in n, strings use s.
type Value struct {
	Type DataType
	n    uint64
	s    string
}

// Zero returns the zero value of type t
func Zero(t DataType) Value { return Value{Type: t} }

// NewBool returns a Bool value
func NewBool(b bool) Value {
	v := Value{Type: Bool}
	if b {
		v.n = 1
	}
	return v
}

// NewString returns a String value
func NewString(s string) Value { return Value{Type: String, s: s} }

// NewInt returns an integer value of type t, range checked.
// Non-integer types are converted.
func NewInt(t DataType, i int64) (Value, error) {
	switch {
	case t.IsUnsigned():
		if i < 0 {
			return Value{}, outOfRange(strconv.FormatInt(i, 10), t)
		}
		return NewUint(t, uint64(i))
	case t.IsInteger():
		bits := t.bits()
		if bits < 64 && (i < -(1<<(bits-1)) || i > (1<<(bits-1))-1) {
			return Value{}, outOfRange(strconv.FormatInt(i, 10), t)
		}
		return Value{Type: t, n: uint64(i)}, nil
	}
	return Value{Type: Long, n: uint64(i)}.Convert(t)
}

// NewUint returns an unsigned integer value of type t, range checked.
// Non-integer types are converted.
func NewUint(t DataType, u uint64) (Value, error) {
	switch {
	case t.IsUnsigned():
		if bits := t.bits(); bits < 64 && u > (1<<bits)-1 {
			return Value{}, outOfRange(strconv.FormatUint(u, 10), t)
		}
		return Value{Type: t, n: u}, nil
	case t.IsInteger():
		if u > math.MaxInt64 {
			return Value{}, outOfRange(strconv.FormatUint(u, 10), t)
		}
		return NewInt(t, int64(u))
	}
	return Value{Type: ULong, n: u}.Convert(t)
}

// NewFloat returns a floating point value of type t. Integer types
// accept only integral values within range.
func NewFloat(t DataType, f float64) (Value, error) {
	switch t {
	case Float:
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return Value{}, outOfRange(strconv.FormatFloat(f, 'g', -1, 64), t)
		}
		return Value{Type: Float, n: math.Float64bits(float64(float32(f)))}, nil
	case Double:
		return Value{Type: Double, n: math.Float64bits(f)}, nil
	}
	return Value{Type: Double, n: math.Float64bits(f)}.Convert(t)
}

// intAtom is the layout value of array size and choice selection atoms
func intAtom(i int) Value { return Value{Type: Int, n: uint64(int64(i))} }

// Int returns v as a signed integer
func (v Value) Int() int64 {
	switch {
	case v.Type.IsFloat():
		return int64(v.Float())
	case v.Type == String:
		i, _ := strconv.ParseInt(v.s, 10, 64)
		return i
	}
	return int64(v.n)
}

// Uint returns v as an unsigned integer
func (v Value) Uint() uint64 {
	switch {
	case v.Type.IsFloat():
		return uint64(v.Float())
	case v.Type == String:
		u, _ := strconv.ParseUint(v.s, 10, 64)
		return u
	}
	return v.n
}

// Float returns v as a float64
func (v Value) Float() float64 {
	switch {
	case v.Type.IsFloat():
		return math.Float64frombits(v.n)
	case v.Type.IsUnsigned():
		return float64(v.n)
	case v.Type == String:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	}
	return float64(int64(v.n))
}

// Bool returns v as a boolean
func (v Value) Bool() bool {
	switch {
	case v.Type.IsFloat():
		return v.Float() != 0
	case v.Type == String:
		b, _ := strconv.ParseBool(v.s)
		return b
	}
	return v.n != 0
}

// Text returns the canonical text form of v
func (v Value) Text() string {
	switch {
	case v.Type == Bool:
		return strconv.FormatBool(v.n != 0)
	case v.Type.IsUnsigned():
		return strconv.FormatUint(v.n, 10)
	case v.Type.IsInteger():
		return strconv.FormatInt(int64(v.n), 10)
	case v.Type.IsFloat():
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type.bits())
	}
	return v.s
}

func (v Value) String() string { return v.Text() }

// Equal returns true if v and o have the same type and contents.
// Floating point values compare by their bits, so NaN equals NaN.
func (v Value) Equal(o Value) bool { return v.Type == o.Type && v.n == o.n && v.s == o.s }

// Convert returns v converted to type t.
func (v Value) Convert(t DataType) (Value, error) {
	if v.Type == t {
		return v, nil
	}
	switch {
	case t == String:
		return NewString(v.Text()), nil
	case v.Type == String:
		return ParseValue(t, v.s)
	case t == Bool:
		return NewBool(v.Bool()), nil
	case t.IsFloat():
		return NewFloat(t, v.Float())
	case v.Type.IsFloat():
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return Value{}, outOfRange(v.Text(), t)
		}
		if f < 0 {
			return NewInt(t, int64(f))
		}
		if f >= math.MaxUint64 {
			return Value{}, outOfRange(v.Text(), t)
		}
		return NewUint(t, uint64(f))
	case v.Type.IsUnsigned():
		return NewUint(t, v.n)
	}
	return NewInt(t, int64(v.n))
}

// ParseValue parses the canonical text form of a value of type t.
func ParseValue(t DataType, s string) (Value, error) {
	switch {
	case t == String:
		return NewString(s), nil
	case t == Bool:
		switch s {
		case "true", "1":
			return NewBool(true), nil
		case "false", "0":
			return NewBool(false), nil
		}
		return Value{}, swerr.Codec(swerr.WithMessagef("invalid boolean %q", s))
	case t.IsUnsigned():
		u, err := strconv.ParseUint(s, 10, t.bits())
		if err != nil {
			return Value{}, parseError(s, t, err)
		}
		return Value{Type: t, n: u}, nil
	case t.IsInteger():
		i, err := strconv.ParseInt(s, 10, t.bits())
		if err != nil {
			return Value{}, parseError(s, t, err)
		}
		return Value{Type: t, n: uint64(i)}, nil
	case t.IsFloat():
		f, err := strconv.ParseFloat(s, t.bits())
		if err != nil {
			return Value{}, parseError(s, t, err)
		}
		return Value{Type: t, n: math.Float64bits(f)}, nil
	}
	return Value{}, swerr.Structural(swerr.WithMessagef("unsupported data type %v", t))
}

func outOfRange(text string, t DataType) error {
	return swerr.Codec(swerr.WithMessagef("value %s out of range for %v", text, t))
}

func parseError(text string, t DataType, err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		err = ne.Err
	}
	return swerr.Codec(swerr.WithMessagef("invalid %v %q", t, text), swerr.WithCause(err))
}
