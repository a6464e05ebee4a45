package extras

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrArrayTooLarge is returned by Pack when the number of values exceeds
// what a 32-bit array header can encode.
var ErrArrayTooLarge = errors.New("extras: array is too large")

type buffer struct {
	data []byte
}

func newBuffer() *buffer {
	return &buffer{data: make([]byte, 0, 32)}
}

func (b *buffer) writeByte(v byte) {
	b.data = append(b.data, v)
}

func (b *buffer) writeRaw(v any) {
	switch x := v.(type) {
	case uint16:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], x)
		b.data = append(b.data, tmp[:]...)
	case uint32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], x)
		b.data = append(b.data, tmp[:]...)
	case uint64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], x)
		b.data = append(b.data, tmp[:]...)
	}
}

func packArrayHeader(n int, b *buffer) error {
	switch {
	case n <= 0x0f:
		b.writeByte(byte(0x90 + n))
	case n <= 0xffff:
		b.writeByte(0xdc)
		b.writeRaw(uint16(n))
	case int64(n) <= 0xffffffff:
		b.writeByte(0xdd)
		b.writeRaw(uint32(n))
	default:
		return ErrArrayTooLarge
	}
	return nil
}

func packFloat64(val float64, b *buffer) {
	b.writeByte(0xcb)
	b.writeRaw(math.Float64bits(val))
}

func packInt64(val int64, b *buffer) {
	switch {
	case 0 <= val && val < 0x80:
		b.writeByte(byte(val))
	case -0x20 <= val && val < 0:
		b.writeByte(byte(int8(val)))
	case 0x80 <= val && val <= 0xff:
		b.writeByte(0xcc)
		b.writeByte(byte(val))
	case -0x80 <= val && val < 0:
		b.writeByte(0xd0)
		b.writeByte(byte(int8(val)))
	case 0xff < val && val <= 0xffff:
		b.writeByte(0xcd)
		b.writeRaw(uint16(val))
	case -0x8000 <= val && val < -0x80:
		b.writeByte(0xd1)
		b.writeRaw(uint16(int16(val)))
	case 0xffff < val && val <= 0xffffffff:
		b.writeByte(0xce)
		b.writeRaw(uint32(val))
	case -0x80000000 <= val && val < -0x8000:
		b.writeByte(0xd2)
		b.writeRaw(uint32(int32(val)))
	case val > 0xffffffff:
		b.writeByte(0xcf)
		b.writeRaw(uint64(val))
	default: // val < -0x80000000
		b.writeByte(0xd3)
		b.writeRaw(uint64(val))
	}
}

// Pack encodes values as an array header followed by one typed scalar per
// value, in order.
func Pack(values []Value) ([]byte, error) {
	b := newBuffer()
	if err := packArrayHeader(len(values), b); err != nil {
		return nil, err
	}
	for _, v := range values {
		if v.IsFloat {
			packFloat64(v.Float, b)
		} else {
			packInt64(v.Int, b)
		}
	}
	return b.data, nil
}
