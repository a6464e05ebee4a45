package extras

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackArrayHeaderSmall(t *testing.T) {
	blob, err := Pack([]Value{Int(1), Int(2)})
	require.NoError(t, err)
	require.Equal(t, byte(0x92), blob[0])
}

func TestPackIntLadder(t *testing.T) {
	cases := []struct {
		val      int64
		wantTag  byte
		wantSize int // bytes after tag, 0 means fixint (tag IS the value byte)
	}{
		{0, 0x00, 0},
		{127, 0x7f, 0},
		{-1, 0xff, 0},
		{-32, 0xe0, 0},
		{200, 0xcc, 1},
		{-100, 0xd0, 1},
		{1000, 0xcd, 2},
		{-1000, 0xd1, 2},
		{100000, 0xce, 4},
		{-100000, 0xd2, 4},
		{5000000000, 0xcf, 8},
		{-5000000000, 0xd3, 8},
	}
	for _, c := range cases {
		blob, err := Pack([]Value{Int(c.val)})
		require.NoError(t, err)
		// skip the array header byte
		body := blob[1:]
		if c.wantSize == 0 {
			require.Equal(t, c.wantTag, body[0], "val=%d", c.val)
			require.Len(t, body, 1)
		} else {
			require.Equal(t, c.wantTag, body[0], "val=%d", c.val)
			require.Len(t, body, 1+c.wantSize)
		}
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	values := []Value{Int(42), Float(3.5), Int(-7), Int(70000)}
	blob, err := Pack(values)
	require.NoError(t, err)
	decoded, err := Unpack(blob)
	require.NoError(t, err)
	require.Equal(t, values, decoded)
}

func TestPackFloat(t *testing.T) {
	blob, err := Pack([]Value{Float(1.5)})
	require.NoError(t, err)
	require.Equal(t, byte(0xcb), blob[1])
	require.Len(t, blob, 1+1+8)
}
