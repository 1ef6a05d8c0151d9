package binenc

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"io"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/iterator"
	"github.com/andaru/swecommon/swerr"
	"github.com/pkg/errors"
)

// Writer writes binary encoded records.
//
// Fixed size arrays of numeric scalars are written in a single write
// without visiting each element, so no atom events fire for their
// elements.
type Writer struct {
	*iterator.Iterator

	order  binary.ByteOrder
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
}

// NewWriter returns a Writer of binary encoded records to w. A nil enc
// means big endian raw bytes. Close must be called to flush a base64
// encoded stream.
func NewWriter(w io.Writer, enc *encoding.BinaryEncoding, opts ...iterator.Option) *Writer {
	if enc == nil {
		enc = &encoding.BinaryEncoding{}
	}
	wr := &Writer{order: byteOrder(enc)}
	if enc.ByteEncoding == encoding.Base64 {
		b64 := base64.NewEncoder(base64.StdEncoding, w)
		w, wr.closer = b64, b64
	}
	wr.w = bufio.NewWriter(w)
	wr.Iterator = iterator.New(wr, false, append(opts, iterator.WithEncoding(enc))...)
	return wr
}

// Write writes the next record
func (w *Writer) Write() error { return w.ProcessRecord() }

// WriteBlock binds b to the root component and writes it.
func (w *Writer) WriteBlock(b *component.DataBlock) error {
	if err := component.Bind(w.DataComponents(), b); err != nil {
		return err
	}
	return w.Write()
}

func (w *Writer) Flush() error { return errors.WithStack(w.w.Flush()) }

// Close flushes the writer and ends a base64 encoded stream. It does
// not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return errors.WithStack(w.closer.Close())
	}
	return nil
}

// ProcessAtom writes the value of s
func (w *Writer) ProcessAtom(s *component.Scalar) error {
	var err error
	if w.buf, err = appendValue(w.buf[:0], w.order, s.Value()); err != nil {
		if e, ok := swerr.As(err); ok {
			e.Component = component.Path(s)
		}
		return err
	}
	if h := w.RawDataHandler(); h != nil {
		h.RawData(s, w.buf)
	}
	_, err = w.w.Write(w.buf)
	return errors.WithStack(err)
}

// ProcessBlock writes fixed size arrays of numeric scalars at once.
func (w *Writer) ProcessBlock(c component.Component) (bool, error) {
	arr, ok := c.(*component.Array)
	if !ok || arr.IsVariableSize() || arr.ComponentCount() == 0 {
		return true, nil
	}
	elem, ok := arr.ElementType().(*component.Scalar)
	if !ok || !elem.DataType().IsNumeric() {
		return true, nil
	}
	b := component.Data(arr)
	off := component.Offset(arr)
	raw := w.RawDataHandler()
	w.buf = w.buf[:0]
	for i := 0; i < arr.ComponentCount(); i++ {
		start := len(w.buf)
		var err error
		if w.buf, err = appendValue(w.buf, w.order, b.At(off+i)); err != nil {
			return false, err
		}
		if raw != nil {
			raw.RawData(arr.ComponentAt(i).(*component.Scalar), w.buf[start:])
		}
	}
	_, err := w.w.Write(w.buf)
	return false, errors.WithStack(err)
}
