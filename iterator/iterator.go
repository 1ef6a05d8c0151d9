package iterator

import (
	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/swerr"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

var (
	// ErrNeedsReset is returned by Next after an error, until Reset is
	// called.
	ErrNeedsReset = errors.New("iterator failed, reset required")
	// ErrEndOfArray is returned once every record of the parent array
	// was processed.
	ErrEndOfArray = errors.New("end of parent array")
)

// DefaultMaxArraySize is the largest implicit or linked array size a
// parsing iterator accepts unless WithMaxArraySize says otherwise.
const DefaultMaxArraySize = 1 << 20

// State is the traversal state of an Iterator
type State int

const (
	// AwaitingRecord is the initial state; the next call to Next resets
	// the iterator.
	AwaitingRecord State = iota
	// Descending means the next component to visit is known
	Descending
	// AtAtom means a scalar value is being processed
	AtAtom
	// PoppingFrames means completed blocks are being closed
	PoppingFrames
	// EndOfRecord means a full record was processed
	EndOfRecord
	// EndOfArray means every record of the parent array was processed
	EndOfArray
)

func (s State) String() string {
	switch s {
	case AwaitingRecord:
		return "AwaitingRecord"
	case Descending:
		return "Descending"
	case AtAtom:
		return "AtAtom"
	case PoppingFrames:
		return "PoppingFrames"
	case EndOfRecord:
		return "EndOfRecord"
	case EndOfArray:
		return "EndOfArray"
	}
	return "State(?)"
}

// Frame records the progress through the children of one aggregate
// component.
type Frame struct {
	Component component.Component
	// Index is the child being visited
	Index int
	// Count is the number of children, fixed when the frame is created
	Count int

	// consumed is set once the selected item of a Choice was visited
	consumed bool
}

func (f *Frame) next() {
	if f.Component.Kind() == component.KindChoice {
		f.consumed = true
		return
	}
	f.Index++
}

func (f *Frame) done() bool {
	if f.Component.Kind() == component.KindChoice {
		return f.consumed
	}
	return f.Index >= f.Count
}

// Iterator traverses a component tree and its data block, one record
// at a time.
type Iterator struct {
	proc    Processor
	parsing bool

	dataHandler  DataHandler
	rawHandler   RawDataHandler
	errorHandler ErrorHandler
	logger       log.Logger
	metrics      *Metrics
	enc          encoding.Encoding
	maxArraySize int

	root        component.Component
	parent      *component.Array
	parentIndex int

	// current record
	record  component.Component
	block   *component.DataBlock
	pos     int
	stack   []Frame
	cur     component.Component
	state   State
	started bool
	atoms   int

	newRecord bool
	failed    error
	// resumePos is the block position following the last record of
	// the parent array, or -1
	resumePos int

	// scratch values for implicit sizes and selections
	sizeValue     *component.Scalar
	selectedValue *component.Scalar
}

// New returns an Iterator driving p. parsing selects the direction:
// true to read values into data blocks, false to write them out.
func New(p Processor, parsing bool, opts ...Option) *Iterator {
	it := &Iterator{
		proc:          p,
		parsing:       parsing,
		dataHandler:   NopHandler{},
		logger:        log.NewNopLogger(),
		maxArraySize:  DefaultMaxArraySize,
		newRecord:     true,
		resumePos:     -1,
		sizeValue:     component.NewScalar("elementCount", component.Int),
		selectedValue: component.NewScalar("selection", component.Int),
	}
	for _, opt := range opts {
		opt(it)
	}
	component.Renew(it.sizeValue)
	component.Renew(it.selectedValue)
	return it
}

// SetDataComponents binds the iterator to the tree rooted at root. The
// whole tree, including array element templates and unselected choice
// items, is checked for arrays whose size cannot be resolved. root must
// not have a parent, and its records must hold at least one atom.
func (it *Iterator) SetDataComponents(root component.Component) error {
	if root.Parent() != nil {
		return swerr.Structural(swerr.WithComponent(component.Path(root)),
			swerr.WithMessage("data components must be the root of their tree"))
	}
	if err := validate(root); err != nil {
		return err
	}
	if root.AtomCount() == 0 {
		return swerr.Structural(swerr.WithComponent(component.Path(root)),
			swerr.WithMessage("records hold no atoms"))
	}
	it.root = root
	it.parent = nil
	it.rewind()
	return nil
}

// SetParentArray makes the iterator process each element of arr as a
// record, in order. The elements share arr's data block. A nil arr
// returns to processing the root set by SetDataComponents.
func (it *Iterator) SetParentArray(arr *component.Array) error {
	if arr == nil {
		it.parent = nil
		it.rewind()
		return nil
	}
	if err := validate(arr); err != nil {
		return err
	}
	it.parent = arr
	it.root = arr.ElementType()
	it.rewind()
	return nil
}

func (it *Iterator) rewind() {
	it.parentIndex = 0
	it.resumePos = -1
	it.stack = it.stack[:0]
	it.state = AwaitingRecord
	it.newRecord = true
	it.failed = nil
}

// DataComponents returns the root component, or the element template
// of the parent array.
func (it *Iterator) DataComponents() component.Component { return it.root }

// ParentArray returns the parent array, or nil
func (it *Iterator) ParentArray() *component.Array { return it.parent }

// Record returns the component being processed as the current record.
func (it *Iterator) Record() component.Component { return it.record }

func (it *Iterator) Encoding() encoding.Encoding        { return it.enc }
func (it *Iterator) SetEncoding(enc encoding.Encoding)  { it.enc = enc }
func (it *Iterator) DataHandler() DataHandler           { return it.dataHandler }
func (it *Iterator) RawDataHandler() RawDataHandler     { return it.rawHandler }
func (it *Iterator) ErrorHandler() ErrorHandler         { return it.errorHandler }
func (it *Iterator) SetDataHandler(h DataHandler)       { it.dataHandler = h }
func (it *Iterator) SetRawDataHandler(h RawDataHandler) { it.rawHandler = h }
func (it *Iterator) Logger() log.Logger                 { return it.logger }

// Parsing returns true if the iterator reads data blocks
func (it *Iterator) Parsing() bool { return it.parsing }

func (it *Iterator) State() State { return it.state }

// EndOfRecord returns true once the current record was fully processed
func (it *Iterator) EndOfRecord() bool {
	return it.state == EndOfRecord || it.state == EndOfArray
}

// EndOfArray returns true once every record of the parent array was
// processed.
func (it *Iterator) EndOfArray() bool { return it.state == EndOfArray }

// Depth returns the number of open frames
func (it *Iterator) Depth() int { return len(it.stack) }

// Frames returns a copy of the open frames, outermost first.
func (it *Iterator) Frames() []Frame { return append([]Frame(nil), it.stack...) }

// Reset begins the next record. With a parent array, the next element
// becomes the record, and ErrEndOfArray is returned once no elements
// remain. Otherwise, a parsing iterator renews the root's data block
// and a writing iterator keeps the block currently bound to the root.
//
// Reset clears the frame stack and any failure. After a failure within
// a parent array record, that record is abandoned and Reset moves on
// to the next element.
func (it *Iterator) Reset() error {
	if it.root == nil {
		return swerr.Structural(swerr.WithMessage("no data components set"))
	}
	if it.failed != nil && it.parent != nil && it.started {
		it.parentIndex++
		it.resumePos = -1
	}
	it.stack = it.stack[:0]
	it.failed = nil
	it.started = false
	it.atoms = 0

	if it.parent != nil {
		if it.parentIndex >= it.parent.ComponentCount() {
			it.state = EndOfArray
			it.newRecord = false
			return ErrEndOfArray
		}
		it.record = it.parent.ComponentAt(it.parentIndex)
		it.block = component.Data(it.record)
		if it.block == nil {
			return swerr.Structural(swerr.WithComponent(component.Path(it.parent)),
				swerr.WithMessage("parent array has no data block"))
		}
		if it.resumePos < 0 {
			it.pos = component.Offset(it.record)
		} else {
			it.pos = it.resumePos
		}
	} else {
		it.record = it.root
		if it.parsing {
			it.block = component.Renew(it.root)
		} else {
			it.block = component.Data(it.root)
		}
		it.pos = 0
	}
	it.cur = it.record
	it.state = Descending
	it.newRecord = false
	return nil
}

// Next processes the next atomic value of the current record, starting
// a new record first if the previous one completed. Components are
// visited depth-first in declaration order. After an error the current
// record is abandoned: Next returns ErrNeedsReset until Reset is
// called.
func (it *Iterator) Next() error {
	if it.failed != nil {
		return errors.Wrapf(ErrNeedsReset, "after %v", it.failed)
	}
	if it.state == EndOfArray {
		return ErrEndOfArray
	}
	if it.newRecord {
		if err := it.Reset(); err == ErrEndOfArray {
			return err
		} else if err != nil {
			return it.fail(err)
		}
	}
	if err := it.step(); err != nil {
		return it.fail(err)
	}
	return nil
}

// ProcessRecord calls Next until the current (or next) record is
// complete.
func (it *Iterator) ProcessRecord() error {
	for {
		if err := it.Next(); err != nil {
			return err
		}
		if it.EndOfRecord() {
			return nil
		}
	}
}

func (it *Iterator) direction() string {
	if it.parsing {
		return "parse"
	}
	return "write"
}

func (it *Iterator) fail(err error) error {
	it.failed = err
	path := ""
	if it.cur != nil {
		path = component.Path(it.cur)
	}
	level.Warn(it.logger).Log("msg", "data traversal failed", "direction", it.direction(), "component", path, "err", err)
	if it.metrics != nil {
		it.metrics.errors.WithLabelValues(it.direction()).Inc()
	}
	if it.errorHandler != nil {
		it.errorHandler.Error(err)
	}
	return err
}

// step visits it.cur, descending until an atom was processed or a
// block completed, then moves on to the next component.
func (it *Iterator) step() error {
	if !it.started {
		it.started = true
		if err := it.dataHandler.StartData(it.record); err != nil {
			return err
		}
		if it.parent == nil {
			// the handler may have bound another block
			if b := component.Data(it.record); b != it.block {
				it.block, it.pos = b, 0
			}
		}
		if it.block == nil {
			return swerr.Structural(swerr.WithComponent(component.Path(it.record)),
				swerr.WithMessage("no data block bound"))
		}
	}

	c := it.cur
	for {
		it.cur = c
		if c.Kind() == component.KindScalar {
			if err := it.visitAtom(c.(*component.Scalar)); err != nil {
				return err
			}
			break
		}

		it.state = Descending
		component.Pin(c, it.block, it.pos)
		if err := it.dataHandler.StartDataBlock(c); err != nil {
			return err
		}
		descend, err := it.proc.ProcessBlock(c)
		if err != nil {
			return err
		}
		if !descend {
			it.pos += c.AtomCount()
			if err := it.dataHandler.EndDataBlock(c); err != nil {
				return err
			}
			break
		}
		count, err := it.resolve(c)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := it.dataHandler.EndDataBlock(c); err != nil {
				return err
			}
			break
		}
		it.stack = append(it.stack, Frame{Component: c, Count: count})
		c = c.ComponentAt(0)
	}
	return it.advance()
}

func (it *Iterator) visitAtom(s *component.Scalar) error {
	it.state = AtAtom
	if it.pos >= it.block.Len() {
		return swerr.Structural(swerr.WithComponent(component.Path(s)),
			swerr.WithMessagef("data block too short, no atom at %d", it.pos))
	}
	component.Pin(s, it.block, it.pos)
	if err := it.dataHandler.BeginDataAtom(s); err != nil {
		return err
	}
	if err := it.proc.ProcessAtom(s); err != nil {
		return err
	}
	if err := it.dataHandler.EndDataAtom(s); err != nil {
		return err
	}
	it.pos++
	it.atoms++
	if it.metrics != nil {
		it.metrics.atoms.WithLabelValues(it.direction()).Inc()
	}
	return nil
}

// resolve reads or writes the implicit size or selection of c and
// returns the number of children to visit.
func (it *Iterator) resolve(c component.Component) (int, error) {
	switch c := c.(type) {
	case *component.Array:
		switch {
		case c.SizeIsImplicit():
			if it.parsing {
				if err := it.proc.ProcessAtom(it.sizeValue); err != nil {
					return 0, err
				}
				n := it.sizeValue.Int()
				if err := it.checkArraySize(c, n); err != nil {
					return 0, err
				}
				if err := c.UpdateSize(int(n)); err != nil {
					return 0, err
				}
			} else {
				if err := it.sizeValue.SetInt(int64(c.ComponentCount())); err != nil {
					return 0, err
				}
				if err := it.proc.ProcessAtom(it.sizeValue); err != nil {
					return 0, err
				}
			}
			it.pos++
		case c.SizeLink() != nil:
			if it.parsing {
				if err := it.checkArraySize(c, c.SizeLink().Int()); err != nil {
					return 0, err
				}
			}
			if err := c.UpdateSizeFromLink(); err != nil {
				return 0, err
			}
		case c.IsVariableSize():
			return 0, c.Validate()
		}
	case *component.Choice:
		if c.SelectionIsImplicit() && it.parsing {
			if err := it.proc.ProcessAtom(it.selectedValue); err != nil {
				return 0, err
			}
			k := it.selectedValue.Int()
			if k < 0 || k >= int64(c.ItemCount()) {
				return 0, swerr.SizeViolation(k, swerr.WithComponent(component.Path(c)),
					swerr.WithMessagef("choice selection out of range [0,%d)", c.ItemCount()))
			}
			if err := c.SetSelected(int(k)); err != nil {
				return 0, err
			}
		} else {
			k := c.Selected()
			if k < 0 {
				return 0, swerr.Structural(swerr.WithComponent(component.Path(c)),
					swerr.WithMessage("no choice item selected"))
			}
			if c.SelectionIsImplicit() {
				if err := it.selectedValue.SetInt(int64(k)); err != nil {
					return 0, err
				}
				if err := it.proc.ProcessAtom(it.selectedValue); err != nil {
					return 0, err
				}
			} else if err := c.SetSelected(k); err != nil {
				// stores the external selection in the block
				return 0, err
			}
		}
		it.pos++
	}
	return c.ComponentCount(), nil
}

// checkArraySize rejects a parsed array size the iterator will not
// allocate. Negative sizes are left to the array.
func (it *Iterator) checkArraySize(a *component.Array, n int64) error {
	if int64(int(n)) != n || (it.maxArraySize > 0 && n > int64(it.maxArraySize)) {
		return swerr.SizeViolation(n, swerr.WithComponent(component.Path(a)),
			swerr.WithMessagef("array size exceeds maximum %d", it.maxArraySize))
	}
	return nil
}

// advance moves to the next component, closing completed blocks. When
// the root completes, the record ends.
func (it *Iterator) advance() error {
	it.state = PoppingFrames
	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]
		f.next()
		if !f.done() {
			it.cur = f.Component.ComponentAt(f.Index)
			it.state = Descending
			return nil
		}
		c := f.Component
		it.stack = it.stack[:len(it.stack)-1]
		if err := it.dataHandler.EndDataBlock(c); err != nil {
			return err
		}
	}
	return it.endRecord()
}

func (it *Iterator) endRecord() error {
	if err := it.dataHandler.EndData(it.record); err != nil {
		return err
	}
	it.newRecord = true
	it.state = EndOfRecord
	if it.metrics != nil {
		it.metrics.records.WithLabelValues(it.direction()).Inc()
	}
	level.Debug(it.logger).Log("msg", "record complete", "direction", it.direction(),
		"component", component.Path(it.record), "atoms", it.atoms)
	if it.parent != nil {
		it.parentIndex++
		it.resumePos = it.pos
		if it.parentIndex >= it.parent.ComponentCount() {
			it.state = EndOfArray
			it.newRecord = false
		}
	}
	return nil
}

// validate checks every array in the tree rooted at root, including
// element templates and all choice items.
func validate(root component.Component) error {
	stack := []component.Component{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch c := c.(type) {
		case *component.Record:
			for i := 0; i < c.ComponentCount(); i++ {
				stack = append(stack, c.ComponentAt(i))
			}
		case *component.Array:
			if err := c.Validate(); err != nil {
				return err
			}
			stack = append(stack, c.ElementType())
			for i := 0; i < c.ComponentCount(); i++ {
				stack = append(stack, c.ComponentAt(i))
			}
		case *component.Choice:
			for i := 0; i < c.ItemCount(); i++ {
				stack = append(stack, c.Item(i))
			}
		}
	}
	return nil
}
