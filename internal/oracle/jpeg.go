package oracle

import (
	"encoding/binary"
)

const (
	markerSOI = 0xd8
	markerEOI = 0xd9
	markerSOS = 0xda
	markerTEM = 0x01
)

// JPEG walks marker segments up to the scan, then the entropy-coded data up
// to the end-of-image marker. Without an end marker inside the probe the
// candidate is rejected.
func JPEG(data []byte, lim Limits) Verdict {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI || data[2] != 0xff {
		return Reject{}
	}
	if !isLeadingMarker(data[3]) {
		return Reject{}
	}

	pos := 2
	for pos < len(data) {
		if data[pos] != 0xff {
			return Reject{}
		}
		for pos < len(data) && data[pos] == 0xff {
			pos++
		}
		if pos >= len(data) {
			return Reject{}
		}
		marker := data[pos]
		pos++

		switch {
		case marker == markerEOI:
			return Size{Bytes: clampMax(int64(pos), lim)}
		case marker == markerTEM || isRestart(marker):
			continue
		}

		if pos+2 > len(data) {
			return Reject{}
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 {
			return Reject{}
		}
		pos += segLen

		if marker == markerSOS {
			next, end := scanEntropy(data, pos)
			if end {
				return Size{Bytes: clampMax(int64(next), lim)}
			}
			if next < 0 {
				return Reject{}
			}
			pos = next
		}
	}
	return Reject{}
}

// scanEntropy skips entropy-coded bytes after a scan header. It returns the
// offset just past EOI with end=true, the offset of the next marker with
// end=false, or -1 when the data runs out.
func scanEntropy(data []byte, pos int) (int, bool) {
	for i := pos; i+1 < len(data); i++ {
		if data[i] != 0xff {
			continue
		}
		next := data[i+1]
		switch {
		case next == 0x00 || isRestart(next):
			i++
		case next == 0xff:
			// Fill byte; the marker starts at the next 0xff.
		case next == markerEOI:
			return i + 2, true
		default:
			return i, false
		}
	}
	return -1, false
}

func isRestart(m byte) bool {
	return m >= 0xd0 && m <= 0xd7
}

// isLeadingMarker reports whether m may directly follow SOI: an APPn,
// quantisation or Huffman table, a frame header or a comment.
func isLeadingMarker(m byte) bool {
	switch {
	case m >= 0xe0 && m <= 0xef:
		return true
	case m >= 0xc0 && m <= 0xcf && m != 0xc8 && m != 0xcc:
		return true
	case m == 0xdb || m == 0xdd || m == 0xfe:
		return true
	}
	return false
}
