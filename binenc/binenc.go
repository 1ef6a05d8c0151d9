// Package binenc reads and writes data records as fixed width binary
// values.
//
// Numbers use the width of their data type in the configured byte
// order. Booleans are one byte, 0 or 1. Strings are a uint16 byte
// length followed by the UTF-8 bytes. With base64 byte encoding the
// whole stream is additionally base64 encoded.
package binenc

import (
	"encoding/binary"
	"math"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/swerr"
)

// MaxStringLength is the length limit of binary encoded strings
const MaxStringLength = math.MaxUint16

func byteOrder(enc *encoding.BinaryEncoding) binary.ByteOrder {
	if enc.ByteOrder == encoding.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// appendValue appends the binary encoding of v to dst
func appendValue(dst []byte, order binary.ByteOrder, v component.Value) ([]byte, error) {
	var b [8]byte
	switch v.Type {
	case component.Bool:
		if v.Bool() {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case component.Byte, component.UByte:
		return append(dst, byte(v.Uint())), nil
	case component.Short, component.UShort:
		order.PutUint16(b[:], uint16(v.Uint()))
		return append(dst, b[:2]...), nil
	case component.Int, component.UInt:
		order.PutUint32(b[:], uint32(v.Uint()))
		return append(dst, b[:4]...), nil
	case component.Long, component.ULong:
		order.PutUint64(b[:], v.Uint())
		return append(dst, b[:8]...), nil
	case component.Float:
		order.PutUint32(b[:], math.Float32bits(float32(v.Float())))
		return append(dst, b[:4]...), nil
	case component.Double:
		order.PutUint64(b[:], math.Float64bits(v.Float()))
		return append(dst, b[:8]...), nil
	case component.String:
		s := v.Text()
		if len(s) > MaxStringLength {
			return dst, swerr.Codec(swerr.WithMessagef("string of %d bytes exceeds the %d byte limit", len(s), MaxStringLength))
		}
		order.PutUint16(b[:], uint16(len(s)))
		dst = append(dst, b[:2]...)
		return append(dst, s...), nil
	}
	return dst, swerr.Structural(swerr.WithMessagef("unsupported data type %v", v.Type))
}

// decodeValue decodes a fixed width value of type t from b, which
// holds exactly t.Size() bytes.
func decodeValue(t component.DataType, order binary.ByteOrder, b []byte) (component.Value, error) {
	switch t {
	case component.Bool:
		if b[0] > 1 {
			return component.Value{}, swerr.Codec(swerr.WithMessagef("invalid boolean byte %#x", b[0]))
		}
		return component.NewBool(b[0] == 1), nil
	case component.Byte:
		return component.NewInt(t, int64(int8(b[0])))
	case component.UByte:
		return component.NewUint(t, uint64(b[0]))
	case component.Short:
		return component.NewInt(t, int64(int16(order.Uint16(b))))
	case component.UShort:
		return component.NewUint(t, uint64(order.Uint16(b)))
	case component.Int:
		return component.NewInt(t, int64(int32(order.Uint32(b))))
	case component.UInt:
		return component.NewUint(t, uint64(order.Uint32(b)))
	case component.Long:
		return component.NewInt(t, int64(order.Uint64(b)))
	case component.ULong:
		return component.NewUint(t, order.Uint64(b))
	case component.Float:
		return component.NewFloat(t, float64(math.Float32frombits(order.Uint32(b))))
	case component.Double:
		return component.NewFloat(t, math.Float64frombits(order.Uint64(b)))
	}
	return component.Value{}, swerr.Structural(swerr.WithMessagef("unsupported data type %v", t))
}
