package component

import (
	"strings"

	"github.com/andaru/swecommon/swerr"
	"github.com/pkg/errors"
)

// DataBlock is the flat, typed value storage backing one component
// tree. See the package documentation for its layout.
type DataBlock struct {
	atoms []Value
	// gen changes whenever the layout changes
	gen uint64
}

// NewDataBlock returns a block holding a copy of values.
func NewDataBlock(values ...Value) *DataBlock {
	return &DataBlock{atoms: append([]Value(nil), values...)}
}

// Len returns the number of atoms in the block
func (b *DataBlock) Len() int { return len(b.atoms) }

// At returns the i-th atom
func (b *DataBlock) At(i int) Value { return b.atoms[i] }

// Set stores v at index i, converted to the type already held there.
func (b *DataBlock) Set(i int, v Value) error {
	cv, err := v.Convert(b.atoms[i].Type)
	if err != nil {
		return err
	}
	b.atoms[i] = cv
	return nil
}

// Values returns a copy of the block's atoms
func (b *DataBlock) Values() []Value { return append([]Value(nil), b.atoms...) }

// Clone returns a copy of the block
func (b *DataBlock) Clone() *DataBlock { return NewDataBlock(b.atoms...) }

// Equal returns true if b and o hold equal atoms
func (b *DataBlock) Equal(o *DataBlock) bool {
	if b == nil || o == nil {
		return b == o
	}
	if len(b.atoms) != len(o.atoms) {
		return false
	}
	for i := range b.atoms {
		if !b.atoms[i].Equal(o.atoms[i]) {
			return false
		}
	}
	return true
}

func (b *DataBlock) String() string {
	parts := make([]string, len(b.atoms))
	for i, v := range b.atoms {
		parts[i] = v.Text()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// splice replaces remove atoms at off with insert
func (b *DataBlock) splice(off, remove int, insert []Value) {
	b.gen++
	if remove == 0 && len(insert) == 0 {
		return
	}
	tail := b.atoms[off+remove:]
	out := make([]Value, 0, len(b.atoms)-remove+len(insert))
	out = append(out, b.atoms[:off]...)
	out = append(out, insert...)
	b.atoms = append(out, tail...)
}

// Renew allocates a fresh block of zero values matching the current
// shape of the tree containing c, binds it to the tree's root and
// returns it.
func Renew(c Component) *DataBlock {
	root := Root(c)
	b := &DataBlock{atoms: appendLayout(nil, root)}
	root.node().data = b
	return b
}

// Bind adopts block b as the data of the tree rooted at root, restoring
// array sizes and choice selections from the block's size and selection
// atoms. If Bind fails the tree must be renewed or bound again before
// use.
func Bind(root Component, b *DataBlock) error {
	if root.Parent() != nil {
		return swerr.Structural(swerr.WithComponent(Path(root)), swerr.WithMessage("cannot bind a data block to a non-root component"))
	}
	root.node().data = b
	b.gen++

	mismatch := func(c Component, pos int) error {
		return swerr.Structural(swerr.WithComponent(Path(c)),
			swerr.WithMessagef("data block does not match component layout at atom %d", pos))
	}
	var pos int
	stack := []Component{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch c := c.(type) {
		case *Scalar:
			if pos >= len(b.atoms) || b.atoms[pos].Type != c.dataType {
				return mismatch(c, pos)
			}
			pos++
		case *Array:
			switch {
			case c.implicit:
				if pos >= len(b.atoms) || b.atoms[pos].Type != Int {
					return mismatch(c, pos)
				}
				n := int(b.atoms[pos].Int())
				if err := c.checkSize(n); err != nil {
					return err
				}
				c.setLength(n)
				pos++
			case c.link != nil:
				n := c.link.Int()
				if err := c.checkSize(int(n)); err != nil {
					return err
				}
				c.setLength(int(n))
			case !c.fixed:
				return c.Validate()
			}
			for i := len(c.elements) - 1; i >= 0; i-- {
				stack = append(stack, c.elements[i])
			}
		case *Choice:
			if pos >= len(b.atoms) || b.atoms[pos].Type != Int {
				return mismatch(c, pos)
			}
			k := int(b.atoms[pos].Int())
			if k < -1 || k >= len(c.items) {
				return swerr.SizeViolation(int64(k), swerr.WithComponent(Path(c)),
					swerr.WithMessage("choice selection out of range"))
			}
			c.selected = k
			invalidate(c)
			pos++
			if k > -1 {
				stack = append(stack, c.items[k])
			}
		case *Record:
			for i := len(c.fields) - 1; i >= 0; i-- {
				stack = append(stack, c.fields[i])
			}
		}
	}
	if pos != len(b.atoms) {
		return mismatch(root, pos)
	}
	return nil
}

// appendLayout appends the zero layout of the subtree c to dst
func appendLayout(dst []Value, c Component) []Value {
	_ = Walk(c, func(n Component) error {
		switch n := n.(type) {
		case *Scalar:
			dst = append(dst, Zero(n.dataType))
		case *Array:
			if n.implicit {
				dst = append(dst, intAtom(len(n.elements)))
			}
		case *Choice:
			dst = append(dst, intAtom(n.selected))
		}
		return nil
	})
	return dst
}

// SkipChildren may be returned by a WalkFunc to skip the children of
// the component it was called with.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each component visited by Walk
type WalkFunc func(c Component) error

// Walk calls fn for each component of the subtree rooted at root in
// depth-first declaration order, following the current array sizes and
// choice selections. It uses an explicit stack, so arbitrarily deep
// trees do not grow the call stack. Walk stops at the first error
// returned by fn, other than SkipChildren.
func Walk(root Component, fn WalkFunc) error {
	stack := []Component{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(c); err == SkipChildren {
			continue
		} else if err != nil {
			return err
		}
		for i := c.ComponentCount() - 1; i >= 0; i-- {
			stack = append(stack, c.ComponentAt(i))
		}
	}
	return nil
}
