package textenc

import (
	"bufio"
	"io"
	"strings"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/iterator"
	"github.com/andaru/swecommon/swerr"
	"github.com/pkg/errors"
)

// Writer writes records as delimiter separated text. Values of a
// record are separated by the token separator and each record is
// followed by the block separator.
type Writer struct {
	*iterator.Iterator

	enc     *encoding.TextEncoding
	encErr  error
	w       *bufio.Writer
	needSep bool
}

// NewWriter returns a Writer of text encoded records to w. A nil enc
// uses the default text encoding.
func NewWriter(w io.Writer, enc *encoding.TextEncoding, opts ...iterator.Option) *Writer {
	if enc == nil {
		enc = encoding.DefaultTextEncoding()
	}
	wr := &Writer{enc: enc, encErr: checkEncoding(enc), w: bufio.NewWriter(w)}
	wr.Iterator = iterator.New(wr, false, append(opts, iterator.WithEncoding(enc))...)
	return wr
}

// Write writes the next record: the data block bound to the root
// component, or the next element of the parent array. Nothing is
// written if the text encoding is unusable.
func (w *Writer) Write() error {
	if w.encErr != nil {
		return w.encErr
	}
	w.needSep = false
	if err := w.ProcessRecord(); err != nil {
		return err
	}
	_, err := w.w.WriteString(w.enc.BlockSeparator)
	return errors.WithStack(err)
}

// WriteBlock binds b to the root component and writes it.
func (w *Writer) WriteBlock(b *component.DataBlock) error {
	if err := component.Bind(w.DataComponents(), b); err != nil {
		return err
	}
	return w.Write()
}

// Flush writes any buffered data to the underlying writer
func (w *Writer) Flush() error { return errors.WithStack(w.w.Flush()) }

// ProcessAtom writes the value of s
func (w *Writer) ProcessAtom(s *component.Scalar) error {
	text := s.Text()
	switch t := s.DataType(); {
	case t.IsFloat() && w.enc.DecimalSeparator != "" && w.enc.DecimalSeparator != ".":
		text = strings.Replace(text, ".", w.enc.DecimalSeparator, 1)
	case t == component.String:
		if err := w.checkString(text); err != nil {
			return swerr.Codec(swerr.WithComponent(component.Path(s)), swerr.WithMessage(err.Error()))
		}
	}
	if w.needSep {
		if _, err := w.w.WriteString(w.enc.TokenSeparator); err != nil {
			return errors.WithStack(err)
		}
	}
	w.needSep = true
	if h := w.RawDataHandler(); h != nil {
		h.RawData(s, []byte(text))
	}
	_, err := w.w.WriteString(text)
	return errors.WithStack(err)
}

// checkString returns an error if text would not read back unchanged
func (w *Writer) checkString(text string) error {
	switch {
	case strings.Contains(text, w.enc.TokenSeparator), strings.Contains(text, w.enc.BlockSeparator):
		return errors.Errorf("string %q contains a separator", text)
	case w.enc.CollapseWhiteSpaces && strings.TrimSpace(text) != text:
		return errors.Errorf("string %q has surrounding white space", text)
	case w.enc.CollapseWhiteSpaces && text == "":
		return errors.New("empty string with collapsed white space")
	}
	return nil
}

func (w *Writer) ProcessBlock(component.Component) (bool, error) { return true, nil }

// checkEncoding returns a structural error if enc cannot be read back
func checkEncoding(enc *encoding.TextEncoding) error {
	if err := enc.Validate(); err != nil {
		return swerr.Structural(swerr.WithMessage("unusable text encoding"), swerr.WithCause(err))
	}
	return nil
}
