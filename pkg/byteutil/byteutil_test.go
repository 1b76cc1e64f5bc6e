package byteutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadersShortInput(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}

	_, ok := Uint32LE(buf, 0)
	assert.False(t, ok)
	_, ok = Uint32BE(buf, 0)
	assert.False(t, ok)
	_, ok = Uint16LE(buf, 2)
	assert.False(t, ok)
	_, ok = Uint16BE(buf, -1)
	assert.False(t, ok)
	_, ok = Uint32LE(nil, 0)
	assert.False(t, ok)
}

func TestReadersByteOrder(t *testing.T) {
	buf := []byte{0xAA, 0x7C, 0x00, 0x00, 0x00}

	v, ok := Uint32LE(buf, 1)
	assert.True(t, ok)
	assert.Equal(t, uint32(124), v)

	v, ok = Uint32BE(buf, 1)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x7C000000), v)

	v, ok = Uint32(buf, 1, true)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x7C000000), v)

	h, ok := Uint16LE(buf, 0)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x7CAA), h)

	h, ok = Uint16BE(buf, 0)
	assert.True(t, ok)
	assert.Equal(t, uint16(0xAA7C), h)
}

func TestHasPrefixAt(t *testing.T) {
	buf := []byte("xxRIFF")
	assert.True(t, HasPrefixAt(buf, 2, []byte("RIFF")))
	assert.False(t, HasPrefixAt(buf, 3, []byte("RIFF")))
	assert.False(t, HasPrefixAt(buf, 9, []byte("R")))
	assert.True(t, HasPrefix(buf, nil))
}

func TestPrintableRatio(t *testing.T) {
	assert.Equal(t, 0.0, PrintableRatio(nil))
	assert.Equal(t, 1.0, PrintableRatio([]byte("hello\tworld\r\n")))
	assert.InDelta(t, 0.5, PrintableRatio([]byte{'a', 0x00, 'b', 0xff}), 1e-9)
}
