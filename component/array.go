package component

import (
	"github.com/andaru/swecommon/swerr"
)

// Array repeats an element component.
//
// A fixed size array always has the same number of elements. The size
// of a variable size array is either implicit, read or written inline
// as part of the data stream, or linked to a Scalar holding the size.
type Array struct {
	base
	elem     Component
	elements []Component

	fixed    bool
	implicit bool
	link     *Scalar
	maxSize  int
}

// ArrayOption is a constructor option function for the Array type.
type ArrayOption func(*Array)

// FixedSize makes the array fixed at n elements.
func FixedSize(n int) ArrayOption {
	return func(a *Array) {
		a.fixed, a.implicit, a.link = true, false, nil
		a.setLength(n)
	}
}

// ImplicitSize makes the array variable size, with its size encoded
// inline in the data stream.
func ImplicitSize() ArrayOption {
	return func(a *Array) { a.fixed, a.implicit, a.link = false, true, nil }
}

// LinkedSize makes the array variable size, with its size held by s.
// s is never read or written inline by the array; its value must be
// correct before the array is traversed.
func LinkedSize(s *Scalar) ArrayOption {
	return func(a *Array) { a.fixed, a.implicit, a.link = false, false, s }
}

// MaxSize limits the size of a variable size array. Larger sizes are
// rejected as size violations. Zero means no limit.
func MaxSize(n int) ArrayOption { return func(a *Array) { a.maxSize = n } }

// NewArray returns a new Array of elem, which becomes the array's
// element template. Without a size option the array is variable size
// with an unresolved size, which is a structural error once traversed.
func NewArray(name string, elem Component, opts ...ArrayOption) *Array {
	if elem.Parent() != nil {
		panic("NewArray: element " + elem.Name() + " already has a parent")
	}
	a := &Array{base: base{name: name}, elem: elem}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Array) Kind() Kind                  { return KindArray }
func (a *Array) ComponentCount() int         { return len(a.elements) }
func (a *Array) ComponentAt(i int) Component { return a.elements[i] }
func (a *Array) Clone() Component            { return cloneTree(a) }

func (a *Array) AtomCount() int {
	if !a.atomsOK {
		a.atoms = 0
		if a.implicit {
			a.atoms++
		}
		for _, e := range a.elements {
			a.atoms += e.AtomCount()
		}
		a.atomsOK = true
	}
	return a.atoms
}

// ElementType returns the element template.
func (a *Array) ElementType() Component { return a.elem }

// IsVariableSize returns true unless the array has a fixed size.
func (a *Array) IsVariableSize() bool { return !a.fixed }

// SizeIsImplicit returns true if the size is read or written inline.
func (a *Array) SizeIsImplicit() bool { return a.implicit }

// SizeLink returns the Scalar holding the array size, or nil.
func (a *Array) SizeLink() *Scalar { return a.link }

// MaxSize returns the configured size limit, zero if unlimited.
func (a *Array) MaxSize() int { return a.maxSize }

// Validate returns a structural error if the size of the array cannot
// be resolved.
func (a *Array) Validate() error {
	if !a.fixed && !a.implicit && a.link == nil {
		return swerr.Structural(swerr.WithComponent(Path(a)),
			swerr.WithMessage("variable size array has neither an implicit nor a linked size"))
	}
	return nil
}

// UpdateSize resizes the array to n elements, splicing the bound data
// block in place. New elements are clones of the element template with
// zero values. A linked size scalar is updated to n.
func (a *Array) UpdateSize(n int) error {
	if err := a.resize(n); err != nil {
		return err
	}
	if a.link != nil && Data(a.link) != nil && a.link.Int() != int64(n) {
		return a.link.SetInt(int64(n))
	}
	return nil
}

// UpdateSizeFromLink resizes the array to the value of its size link.
func (a *Array) UpdateSizeFromLink() error {
	if a.link == nil {
		return swerr.Structural(swerr.WithComponent(Path(a)), swerr.WithMessage("array has no size link"))
	}
	n := a.link.Int()
	if n < 0 || int64(int(n)) != n {
		return swerr.SizeViolation(n, swerr.WithComponent(Path(a)),
			swerr.WithMessage("invalid linked array size"))
	}
	return a.resize(int(n))
}

func (a *Array) checkSize(n int) error {
	switch {
	case n < 0:
		return swerr.SizeViolation(int64(n), swerr.WithComponent(Path(a)), swerr.WithMessage("negative array size"))
	case a.maxSize > 0 && n > a.maxSize:
		return swerr.SizeViolation(int64(n), swerr.WithComponent(Path(a)),
			swerr.WithMessagef("array size exceeds maximum %d", a.maxSize))
	case a.fixed && n != len(a.elements):
		return swerr.Structural(swerr.WithComponent(Path(a)),
			swerr.WithMessagef("cannot resize fixed size array of %d elements to %d", len(a.elements), n))
	}
	return nil
}

func (a *Array) resize(n int) error {
	if err := a.checkSize(n); err != nil {
		return err
	}
	b := Data(a)
	if b == nil {
		a.setLength(n)
		return nil
	}
	off := Offset(a)
	old := len(a.elements)
	end := off + a.AtomCount()
	switch {
	case n > old:
		a.setLength(n)
		var insert []Value
		for _, e := range a.elements[old:] {
			insert = appendLayout(insert, e)
		}
		b.splice(end, 0, insert)
	case n < old:
		removed := 0
		for _, e := range a.elements[n:] {
			removed += e.AtomCount()
		}
		a.setLength(n)
		b.splice(end-removed, removed, nil)
	}
	if a.implicit {
		b.atoms[off] = intAtom(n)
	}
	return nil
}

// setLength changes the element list without touching any data block
func (a *Array) setLength(n int) {
	if n < len(a.elements) {
		for _, e := range a.elements[n:] {
			e.node().parent = nil
		}
		a.elements = a.elements[:n]
	}
	for i := len(a.elements); i < n; i++ {
		e := a.elem.Clone()
		attach(a, e, i)
		a.elements = append(a.elements, e)
	}
	invalidate(a)
}

func (a *Array) clone(m cloneMap) Component {
	c := &Array{
		base:     a.cloneBase(),
		elem:     a.elem.clone(m),
		fixed:    a.fixed,
		implicit: a.implicit,
		link:     a.link,
		maxSize:  a.maxSize,
	}
	m[a] = c
	c.elements = make([]Component, 0, len(a.elements))
	for i, e := range a.elements {
		ec := e.clone(m)
		attach(c, ec, i)
		c.elements = append(c.elements, ec)
	}
	return c
}
