package component

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a hash of the static structure of the tree rooted
// at c: names, kinds, data types, array size policies, array element
// templates and all choice items. Data values, current array sizes of
// variable arrays and choice selections do not contribute, so two
// structurally identical trees have equal fingerprints whatever data
// they hold.
func Fingerprint(c Component) uint64 {
	d := xxhash.New()
	stack := []Component{c}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		_, _ = d.WriteString(n.Kind().String())
		_, _ = d.WriteString(":" + n.Name() + ";")
		var children []Component
		switch n := n.(type) {
		case *Scalar:
			_, _ = d.WriteString(n.dataType.String())
		case *Record:
			_, _ = d.WriteString(strconv.Itoa(len(n.fields)))
			children = n.fields
		case *Array:
			switch {
			case n.fixed:
				_, _ = d.WriteString("fixed=" + strconv.Itoa(len(n.elements)))
			case n.implicit:
				_, _ = d.WriteString("implicit")
			case n.link != nil:
				_, _ = d.WriteString("link=" + n.link.Name())
			}
			children = []Component{n.elem}
		case *Choice:
			_, _ = d.WriteString(strconv.Itoa(len(n.items)))
			if n.external {
				_, _ = d.WriteString("external")
			}
			children = n.items
		}
		_, _ = d.WriteString("\x00")
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return d.Sum64()
}
