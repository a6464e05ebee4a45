package extras

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrMalformed is returned by Unpack when blob does not decode as a
// well-formed array of typed scalars.
var ErrMalformed = errors.New("extras: malformed blob")

// Unpack decodes a blob produced by Pack back into its Values. It exists
// to let tests assert the round-trip invariant; the library itself never
// needs to decode its own extras.
func Unpack(blob []byte) ([]Value, error) {
	r := reader{data: blob}
	n, err := r.readArrayHeader()
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.readScalar()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if r.pos != len(r.data) {
		return nil, ErrMalformed
	}
	return values, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) byte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *reader) take(n int) ([]byte, bool) {
	if r.pos+n > len(r.data) {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *reader) readArrayHeader() (int, error) {
	b, ok := r.byte()
	if !ok {
		return 0, ErrMalformed
	}
	switch {
	case b&0xf0 == 0x90:
		return int(b & 0x0f), nil
	case b == 0xdc:
		raw, ok := r.take(2)
		if !ok {
			return 0, ErrMalformed
		}
		return int(binary.BigEndian.Uint16(raw)), nil
	case b == 0xdd:
		raw, ok := r.take(4)
		if !ok {
			return 0, ErrMalformed
		}
		return int(binary.BigEndian.Uint32(raw)), nil
	default:
		return 0, ErrMalformed
	}
}

func (r *reader) readScalar() (Value, error) {
	tag, ok := r.byte()
	if !ok {
		return Value{}, ErrMalformed
	}
	switch {
	case tag < 0x80: // positive fixint
		return Int(int64(tag)), nil
	case tag >= 0xe0: // negative fixint
		return Int(int64(int8(tag))), nil
	case tag == 0xcb:
		raw, ok := r.take(8)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case tag == 0xca:
		raw, ok := r.take(4)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Float(float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))), nil
	case tag == 0xcc:
		raw, ok := r.byte()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(raw)), nil
	case tag == 0xd0:
		raw, ok := r.byte()
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(int8(raw))), nil
	case tag == 0xcd:
		raw, ok := r.take(2)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(binary.BigEndian.Uint16(raw))), nil
	case tag == 0xd1:
		raw, ok := r.take(2)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(int16(binary.BigEndian.Uint16(raw)))), nil
	case tag == 0xce:
		raw, ok := r.take(4)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(binary.BigEndian.Uint32(raw))), nil
	case tag == 0xd2:
		raw, ok := r.take(4)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(int32(binary.BigEndian.Uint32(raw)))), nil
	case tag == 0xcf:
		raw, ok := r.take(8)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(binary.BigEndian.Uint64(raw))), nil
	case tag == 0xd3:
		raw, ok := r.take(8)
		if !ok {
			return Value{}, ErrMalformed
		}
		return Int(int64(binary.BigEndian.Uint64(raw))), nil
	default:
		return Value{}, ErrMalformed
	}
}
