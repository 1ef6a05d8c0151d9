package component

import (
	"strconv"
	"strings"
)

// Component is a node in a data component tree.
//
// ComponentCount and ComponentAt describe the children under the
// current dynamic state: the current size of an Array, or the selected
// item of a Choice (for which ComponentAt ignores its argument).
type Component interface {
	Name() string
	Kind() Kind
	Parent() Component
	ComponentCount() int
	ComponentAt(i int) Component
	// AtomCount is the number of DataBlock atoms the subtree occupies
	AtomCount() int
	// Clone returns a deep copy of the subtree's structure and state.
	// The copy has no parent and no data block.
	Clone() Component

	node() *base
	clone(m cloneMap) Component
}

// base holds the state common to all components
type base struct {
	name   string
	parent Component
	index  int // position within parent

	// data is the block bound to a tree; only set on the root
	data *DataBlock

	// atom count cache for aggregates
	atoms   int
	atomsOK bool

	// pinned position, valid while pin.gen == pin.block.gen
	pin struct {
		block  *DataBlock
		gen    uint64
		offset int
	}
}

func (b *base) node() *base        { return b }
func (b *base) Name() string       { return b.name }
func (b *base) Parent() Component  { return b.parent }
func (b *base) SetName(name string) { b.name = name }

// attach makes child the i-th child of parent
func attach(parent, child Component, i int) {
	n := child.node()
	if n.parent != nil && n.parent != parent {
		panic("component " + child.Name() + " already has a parent")
	}
	n.parent = parent
	n.index = i
	n.data = nil
}

// invalidate drops cached atom counts from c up to the root
func invalidate(c Component) {
	for ; c != nil; c = c.Parent() {
		c.node().atomsOK = false
	}
}

// Root returns the root of the tree containing c
func Root(c Component) Component {
	for c.Parent() != nil {
		c = c.Parent()
	}
	return c
}

// Data returns the DataBlock bound to the tree containing c, or nil.
func Data(c Component) *DataBlock { return Root(c).node().data }

// Pin records that c starts at offset within block b. Offset returns
// the pinned position in constant time until the layout of b next
// changes. Traversal engines pin each component they visit.
func Pin(c Component, b *DataBlock, offset int) {
	p := &c.node().pin
	p.block, p.gen, p.offset = b, b.gen, offset
}

// Offset returns the index of the first atom of c within the block
// bound to its tree. The result is only meaningful for components
// which are part of the current layout (e.g., not an unselected Choice
// item).
func Offset(c Component) int {
	if p := c.node().pin; p.block != nil && p.block == Data(c) && p.gen == p.block.gen {
		return p.offset
	}
	off := 0
	for n := c; n.Parent() != nil; n = n.Parent() {
		parent := n.Parent()
		if p := parent.node().pin; p.block != nil && p.block == Data(parent) && p.gen == p.block.gen {
			off += p.offset + prefixAtoms(parent, n)
			return off
		}
		off += prefixAtoms(parent, n)
	}
	return off
}

// prefixAtoms returns the number of atoms of parent preceding child
func prefixAtoms(parent, child Component) int {
	idx := child.node().index
	switch p := parent.(type) {
	case *Record:
		n := 0
		for _, f := range p.fields[:idx] {
			n += f.AtomCount()
		}
		return n
	case *Array:
		n := 0
		if p.implicit {
			n++
		}
		for _, e := range p.elements[:idx] {
			n += e.AtomCount()
		}
		return n
	case *Choice:
		return 1
	}
	return 0
}

// Path returns a slash separated path from the root to c, with array
// element indices in brackets, e.g. "rec/samples[3]/temp".
func Path(c Component) string {
	var parts []string
	for n := c; n != nil; n = n.Parent() {
		part := n.Name()
		if p, ok := n.Parent().(*Array); ok {
			part = p.Name() + "[" + strconv.Itoa(n.node().index) + "]"
			n = p
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

type cloneMap map[Component]Component

// cloneTree deep copies c, remapping array size links which point
// inside the copied subtree.
func cloneTree(c Component) Component {
	m := cloneMap{}
	out := c.clone(m)
	for _, n := range m {
		if a, ok := n.(*Array); ok && a.link != nil {
			if l, ok := m[a.link]; ok {
				a.link = l.(*Scalar)
			}
		}
	}
	return out
}

func (b *base) cloneBase() base { return base{name: b.name} }
