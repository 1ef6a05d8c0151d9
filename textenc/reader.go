// Package textenc reads and writes data records as delimiter separated
// text.
package textenc

import (
	"bufio"
	"io"
	"strings"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/framing"
	"github.com/andaru/swecommon/iterator"
	"github.com/andaru/swecommon/swerr"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Reader parses text encoded records.
type Reader struct {
	*iterator.Iterator

	enc     *encoding.TextEncoding
	encErr  error
	scanner *bufio.Scanner
	tok     string
	hasTok  bool
	blocks  int
}

// NewReader returns a Reader of text encoded records from r. A nil
// enc uses the default text encoding.
func NewReader(r io.Reader, enc *encoding.TextEncoding, opts ...iterator.Option) *Reader {
	if enc == nil {
		enc = encoding.DefaultTextEncoding()
	}
	rd := &Reader{enc: enc, encErr: checkEncoding(enc), scanner: bufio.NewScanner(r)}
	rd.scanner.Split(framing.SplitTokens(enc.TokenSeparator, enc.BlockSeparator, enc.CollapseWhiteSpaces, rd.onEndOfBlock))
	rd.Iterator = iterator.New(rd, true, append(opts, iterator.WithEncoding(enc))...)
	return rd
}

func (r *Reader) onEndOfBlock() { r.blocks++ }

// Blocks returns the number of block separators read so far
func (r *Reader) Blocks() int { return r.blocks }

// Buffer sets the scanner buffer; see bufio.Scanner.Buffer.
func (r *Reader) Buffer(buf []byte, max int) { r.scanner.Buffer(buf, max) }

// Read parses the next record and returns the data block holding it.
// It returns io.EOF if the input ends before a record starts.
func (r *Reader) Read() (*component.DataBlock, error) {
	if r.encErr != nil {
		return nil, r.encErr
	}
	if r.EndOfRecord() || r.State() == iterator.AwaitingRecord {
		if !r.more() {
			if err := r.scanner.Err(); err != nil {
				return nil, swerr.Codec(swerr.WithMessage("reading text stream"), swerr.WithCause(err))
			}
			return nil, io.EOF
		}
	}
	if err := r.ProcessRecord(); err != nil {
		return nil, err
	}
	level.Debug(r.Logger()).Log("msg", "read text record", "blocks", r.blocks)
	return component.Data(r.Record()), nil
}

// more returns true if another token is available
func (r *Reader) more() bool {
	if !r.hasTok && r.scanner.Scan() {
		r.tok, r.hasTok = r.scanner.Text(), true
	}
	return r.hasTok
}

func (r *Reader) token(s *component.Scalar) (string, error) {
	if !r.more() {
		err := r.scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return "", swerr.Codec(swerr.WithComponent(component.Path(s)),
			swerr.WithMessage("reading text stream"), swerr.WithCause(err))
	}
	r.hasTok = false
	return r.tok, nil
}

// ProcessAtom parses the next token into s
func (r *Reader) ProcessAtom(s *component.Scalar) error {
	tok, err := r.token(s)
	if err != nil {
		return err
	}
	if h := r.RawDataHandler(); h != nil {
		h.RawData(s, []byte(tok))
	}
	if t := s.DataType(); t != component.String {
		tok = strings.TrimSpace(tok)
		if t.IsFloat() && r.enc.DecimalSeparator != "" && r.enc.DecimalSeparator != "." {
			tok = strings.Replace(tok, r.enc.DecimalSeparator, ".", 1)
		}
	}
	v, err := component.ParseValue(s.DataType(), tok)
	if err != nil {
		if e, ok := swerr.As(err); ok {
			e.Component = component.Path(s)
		}
		return errors.WithStack(err)
	}
	return s.SetValue(v)
}

func (r *Reader) ProcessBlock(component.Component) (bool, error) { return true, nil }
