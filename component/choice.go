package component

import (
	"github.com/andaru/swecommon/swerr"
)

// Choice holds exactly one selected item among an ordered list of
// named alternatives.
type Choice struct {
	base
	items    []Component
	selected int
	external bool
}

// NewChoice returns a new Choice of the given items with no item
// selected. The selection is implicit (read or written inline) unless
// SetExternalSelection is called.
func NewChoice(name string, items ...Component) *Choice {
	c := &Choice{base: base{name: name}, selected: -1}
	for i, item := range items {
		attach(c, item, i)
		c.items = append(c.items, item)
	}
	return c
}

func (c *Choice) Kind() Kind       { return KindChoice }
func (c *Choice) Clone() Component { return cloneTree(c) }

// ComponentCount returns 1 if an item is selected, else 0.
func (c *Choice) ComponentCount() int {
	if c.selected < 0 {
		return 0
	}
	return 1
}

// ComponentAt returns the selected item; i is ignored.
func (c *Choice) ComponentAt(int) Component {
	if c.selected < 0 {
		return nil
	}
	return c.items[c.selected]
}

func (c *Choice) AtomCount() int {
	if !c.atomsOK {
		c.atoms = 1
		if c.selected > -1 {
			c.atoms += c.items[c.selected].AtomCount()
		}
		c.atomsOK = true
	}
	return c.atoms
}

// ItemCount returns the number of alternatives.
func (c *Choice) ItemCount() int { return len(c.items) }

// Item returns the i-th alternative.
func (c *Choice) Item(i int) Component { return c.items[i] }

// ItemIndex returns the index of the alternative named name, or -1.
func (c *Choice) ItemIndex(name string) int {
	for i, item := range c.items {
		if item.Name() == name {
			return i
		}
	}
	return -1
}

// Selected returns the index of the selected item, or -1.
func (c *Choice) Selected() int { return c.selected }

// SelectionIsImplicit returns true if the selection is read or written
// inline as part of the data stream.
func (c *Choice) SelectionIsImplicit() bool { return !c.external }

// SetExternalSelection marks the selection as externally controlled
// (external true) or inline (external false).
func (c *Choice) SetExternalSelection(external bool) *Choice {
	c.external = external
	return c
}

// SetSelected selects item k, splicing the bound data block in place:
// the atoms of the previously selected item are replaced by zero
// values for item k.
func (c *Choice) SetSelected(k int) error {
	if k < 0 || k >= len(c.items) {
		return swerr.SizeViolation(int64(k), swerr.WithComponent(Path(c)),
			swerr.WithMessagef("choice selection out of range [0,%d)", len(c.items)))
	}
	b := Data(c)
	if b == nil {
		c.selected = k
		invalidate(c)
		return nil
	}
	off := Offset(c)
	if k != c.selected {
		old := c.AtomCount() - 1
		c.selected = k
		invalidate(c)
		b.splice(off+1, old, appendLayout(nil, c.items[k]))
	}
	b.atoms[off] = intAtom(k)
	return nil
}

func (c *Choice) clone(m cloneMap) Component {
	cc := &Choice{base: c.cloneBase(), selected: c.selected, external: c.external}
	m[c] = cc
	for i, item := range c.items {
		ic := item.clone(m)
		attach(cc, ic, i)
		cc.items = append(cc.items, ic)
	}
	return cc
}
