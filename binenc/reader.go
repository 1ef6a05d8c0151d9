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
	"github.com/go-kit/log/level"
)

// Reader parses binary encoded records.
type Reader struct {
	*iterator.Iterator

	order binary.ByteOrder
	r     *bufio.Reader
	buf   []byte
}

// NewReader returns a Reader of binary encoded records from r. A nil
// enc means big endian raw bytes.
func NewReader(r io.Reader, enc *encoding.BinaryEncoding, opts ...iterator.Option) *Reader {
	if enc == nil {
		enc = &encoding.BinaryEncoding{}
	}
	if enc.ByteEncoding == encoding.Base64 {
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	rd := &Reader{order: byteOrder(enc), r: bufio.NewReader(r), buf: make([]byte, 8)}
	rd.Iterator = iterator.New(rd, true, append(opts, iterator.WithEncoding(enc))...)
	return rd
}

// Read parses the next record and returns the data block holding it.
// It returns io.EOF if the input ends before a record starts.
func (r *Reader) Read() (*component.DataBlock, error) {
	if r.EndOfRecord() || r.State() == iterator.AwaitingRecord {
		if _, err := r.r.Peek(1); err == io.EOF {
			return nil, io.EOF
		} else if err != nil {
			return nil, swerr.Codec(swerr.WithMessage("reading binary stream"), swerr.WithCause(err))
		}
	}
	if err := r.ProcessRecord(); err != nil {
		return nil, err
	}
	level.Debug(r.Logger()).Log("msg", "read binary record", "component", component.Path(r.Record()))
	return component.Data(r.Record()), nil
}

func (r *Reader) read(s *component.Scalar, n int) ([]byte, error) {
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	b := r.buf[:n]
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, swerr.Codec(swerr.WithComponent(component.Path(s)),
			swerr.WithMessage("reading binary stream"), swerr.WithCause(err))
	}
	return b, nil
}

// ProcessAtom decodes the next value into s
func (r *Reader) ProcessAtom(s *component.Scalar) error {
	var v component.Value
	var raw []byte
	if t := s.DataType(); t == component.String {
		lb, err := r.read(s, 2)
		if err != nil {
			return err
		}
		if raw, err = r.read(s, int(r.order.Uint16(lb))); err != nil {
			return err
		}
		v = component.NewString(string(raw))
	} else {
		var err error
		if raw, err = r.read(s, t.Size()); err != nil {
			return err
		}
		if v, err = decodeValue(t, r.order, raw); err != nil {
			if e, ok := swerr.As(err); ok {
				e.Component = component.Path(s)
			}
			return err
		}
	}
	if h := r.RawDataHandler(); h != nil {
		h.RawData(s, raw)
	}
	return s.SetValue(v)
}

func (r *Reader) ProcessBlock(component.Component) (bool, error) { return true, nil }
