package iterator

import (
	"github.com/andaru/swecommon/component"
	"github.com/pkg/errors"
)

// Processor is the value codec driven by an Iterator.
type Processor interface {
	// ProcessAtom reads (parse direction) or writes (write direction)
	// exactly one value of s.
	ProcessAtom(s *component.Scalar) error
	// ProcessBlock is called once for each aggregate component before
	// its children are visited. Returning false skips the children; the
	// processor must then have handled the whole subtree itself.
	ProcessBlock(c component.Component) (descend bool, err error)
}

// DataHandler is called by an Iterator at structural and atomic
// boundaries. An error returned by any method aborts the current call
// to Next.
type DataHandler interface {
	StartData(root component.Component) error
	EndData(root component.Component) error
	StartDataBlock(c component.Component) error
	EndDataBlock(c component.Component) error
	BeginDataAtom(s *component.Scalar) error
	EndDataAtom(s *component.Scalar) error
}

// RawDataHandler receives the raw bytes or text of each atom processed
// by a codec. raw may be reused once RawData returns.
type RawDataHandler interface {
	RawData(s *component.Scalar, raw []byte)
}

// ErrorHandler is notified of every error which fails an Iterator.
type ErrorHandler interface {
	Error(err error)
}

// NopHandler is a DataHandler doing nothing. Embed it to implement only
// some of the DataHandler methods.
type NopHandler struct{}

func (NopHandler) StartData(component.Component) error      { return nil }
func (NopHandler) EndData(component.Component) error        { return nil }
func (NopHandler) StartDataBlock(component.Component) error { return nil }
func (NopHandler) EndDataBlock(component.Component) error   { return nil }
func (NopHandler) BeginDataAtom(*component.Scalar) error    { return nil }
func (NopHandler) EndDataAtom(*component.Scalar) error      { return nil }

// ErrSequenceExhausted is returned by SequenceHandler when a record
// starts after all of its blocks were used.
var ErrSequenceExhausted = errors.New("no more data blocks in sequence")

// SequenceHandler binds the root component to the next block of
// Blocks at the start of each record, so that a writing Iterator
// emits many records sharing one component tree.
type SequenceHandler struct {
	NopHandler
	Blocks []*component.DataBlock

	next int
}

func (h *SequenceHandler) StartData(root component.Component) error {
	if h.next >= len(h.Blocks) {
		return errors.WithStack(ErrSequenceExhausted)
	}
	b := h.Blocks[h.next]
	h.next++
	return component.Bind(component.Root(root), b)
}

// Remaining returns the number of blocks not yet bound
func (h *SequenceHandler) Remaining() int { return len(h.Blocks) - h.next }

// Rewind makes the next record start from the first block again
func (h *SequenceHandler) Rewind() { h.next = 0 }

// ErrorHandlerFunc adapts a function to the ErrorHandler interface
type ErrorHandlerFunc func(err error)

func (f ErrorHandlerFunc) Error(err error) { f(err) }
