package bytesx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// L1: hex encode then decode is identity on all bytes 0x00-0xFF.
func TestHexRoundTrip(t *testing.T) {
	for b := 0; b < 256; b++ {
		enc := HexEncodeByte(byte(b))
		got, ok := HexDecodeByte(enc[0], enc[1])
		require.True(t, ok)
		assert.Equal(t, byte(b), got)
	}
}

func TestHexDecodeByteInvalid(t *testing.T) {
	_, ok := HexDecodeByte('g', '0')
	assert.False(t, ok)
	_, ok = HexDecodeByte('0', 'z')
	assert.False(t, ok)
}

func TestHexDecodeStringOddLength(t *testing.T) {
	_, ok := HexDecodeString("abc")
	assert.False(t, ok)
}

// L2: u16_le(encode_le(x)) == x for all x in u16; likewise u16_be, u32_le, u32_be.
func TestScalarRoundTrip(t *testing.T) {
	for _, x := range []uint16{0, 1, 0xff, 0x1234, 0xffff} {
		le := []byte{byte(x), byte(x >> 8)}
		be := []byte{byte(x >> 8), byte(x)}
		assert.Equal(t, x, U16LE(le))
		assert.Equal(t, x, U16BE(be))
	}

	for _, x := range []uint32{0, 1, 0xff, 0x12345678, 0xffffffff} {
		le := []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
		be := []byte{byte(x >> 24), byte(x >> 16), byte(x >> 8), byte(x)}
		assert.Equal(t, x, U32LE(le))
		assert.Equal(t, x, U32BE(be))
	}
}

func TestUintEndianDispatch(t *testing.T) {
	le := []byte{0x01, 0x02, 0x03, 0x04}
	be := []byte{0x04, 0x03, 0x02, 0x01}
	assert.Equal(t, uint64(0x04030201), UintEndian(le, 4, false))
	assert.Equal(t, uint64(0x04030201), UintEndian(be, 4, true))
	assert.Equal(t, uint64(0x0201), UintEndian(le, 2, false))
	assert.Equal(t, uint64(0x01), UintEndian(le, 1, false))
}

// L3: XMODEM-CRC16 of the empty byte string with init 0 is 0.
func TestXmodemCRC16Empty(t *testing.T) {
	assert.Equal(t, uint16(0), XmodemCRC16(nil, 0))
}

func TestXmodemCRC16KnownVector(t *testing.T) {
	// "123456789" is the standard XMODEM-CRC16 test vector.
	got := XmodemCRC16([]byte("123456789"), 0)
	assert.Equal(t, uint16(0x31C3), got)
}

func TestSum8Sum16(t *testing.T) {
	data := []byte{0x01, 0x02, 0xff}
	assert.Equal(t, uint8(0x02), Sum8(data))
	assert.Equal(t, uint16(0x0102), Sum16(data))
}
