package component

import (
	"github.com/andaru/swecommon/swerr"
)

// Scalar is an atomic data component holding one value of its DataType.
type Scalar struct {
	base
	dataType DataType
}

// NewScalar returns a new Scalar named name holding values of type t.
func NewScalar(name string, t DataType) *Scalar {
	if !t.valid() {
		panic("NewScalar: invalid data type " + t.String())
	}
	return &Scalar{base: base{name: name}, dataType: t}
}

func (s *Scalar) Kind() Kind                { return KindScalar }
func (s *Scalar) ComponentCount() int       { return 0 }
func (s *Scalar) ComponentAt(int) Component { return nil }
func (s *Scalar) AtomCount() int            { return 1 }
func (s *Scalar) Clone() Component          { return cloneTree(s) }

// DataType returns the scalar's value type
func (s *Scalar) DataType() DataType { return s.dataType }

func (s *Scalar) clone(m cloneMap) Component {
	c := &Scalar{base: s.cloneBase(), dataType: s.dataType}
	m[s] = c
	return c
}

// slot returns the bound block and the scalar's index within it
func (s *Scalar) slot() (*DataBlock, int) {
	b := Data(s)
	if b == nil {
		return nil, -1
	}
	return b, Offset(s)
}

// Value returns the scalar's current value, or the zero value of its
// type if no data block is bound.
func (s *Scalar) Value() Value {
	b, i := s.slot()
	if b == nil || i >= b.Len() {
		return Zero(s.dataType)
	}
	return b.At(i)
}

// SetValue converts v to the scalar's type and stores it.
func (s *Scalar) SetValue(v Value) error {
	b, i := s.slot()
	if b == nil || i >= b.Len() {
		return swerr.Structural(swerr.WithComponent(Path(s)), swerr.WithMessage("no data block bound"))
	}
	cv, err := v.Convert(s.dataType)
	if err != nil {
		if e, ok := swerr.As(err); ok && e.Component == "" {
			e.Component = Path(s)
		}
		return err
	}
	b.atoms[i] = cv
	return nil
}

func (s *Scalar) Int() int64     { return s.Value().Int() }
func (s *Scalar) Uint() uint64   { return s.Value().Uint() }
func (s *Scalar) Float() float64 { return s.Value().Float() }
func (s *Scalar) Bool() bool     { return s.Value().Bool() }
func (s *Scalar) Text() string   { return s.Value().Text() }

func (s *Scalar) SetInt(i int64) error {
	v, err := NewInt(Long, i)
	if err != nil {
		return err
	}
	return s.SetValue(v)
}

func (s *Scalar) SetUint(u uint64) error {
	v, err := NewUint(ULong, u)
	if err != nil {
		return err
	}
	return s.SetValue(v)
}

func (s *Scalar) SetFloat(f float64) error {
	v, _ := NewFloat(Double, f)
	return s.SetValue(v)
}

func (s *Scalar) SetBool(b bool) error     { return s.SetValue(NewBool(b)) }
func (s *Scalar) SetText(text string) error { return s.SetValue(NewString(text)) }
