// Package byteutil reads fixed-width integers out of arbitrary buffers
// without panicking on short input.
package byteutil

import "encoding/binary"

// Uint16LE reads a little-endian uint16 at off. ok is false when the buffer
// does not hold two bytes at that offset.
func Uint16LE(buf []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(buf[off:]), true
}

// Uint16BE reads a big-endian uint16 at off.
func Uint16BE(buf []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(buf) {
		return 0, false
	}
	return binary.BigEndian.Uint16(buf[off:]), true
}

// Uint32LE reads a little-endian uint32 at off.
func Uint32LE(buf []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[off:]), true
}

// Uint32BE reads a big-endian uint32 at off.
func Uint32BE(buf []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(buf) {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[off:]), true
}

// Uint32 reads a uint32 at off in the requested byte order.
func Uint32(buf []byte, off int, bigEndian bool) (uint32, bool) {
	if bigEndian {
		return Uint32BE(buf, off)
	}
	return Uint32LE(buf, off)
}

// HasPrefix reports whether buf begins with prefix.
func HasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}

// HasPrefixAt reports whether buf holds prefix starting at off.
func HasPrefixAt(buf []byte, off int, prefix []byte) bool {
	if off < 0 || off > len(buf) {
		return false
	}
	return HasPrefix(buf[off:], prefix)
}

// IsPrintable reports whether b is printable ASCII or one of tab, LF, CR.
func IsPrintable(b byte) bool {
	return (b >= 0x20 && b < 0x7f) || b == '\t' || b == '\n' || b == '\r'
}

// PrintableRatio returns the share of printable bytes in buf.
func PrintableRatio(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	n := 0
	for _, b := range buf {
		if IsPrintable(b) {
			n++
		}
	}
	return float64(n) / float64(len(buf))
}
