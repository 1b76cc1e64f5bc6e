package oracle

import "memcarve/pkg/byteutil"

const (
	oggPageHeader = 27
	oggFlagBOS    = 0x02
	oggFlagEOS    = 0x04
)

var oggMagic = []byte("OggS")

// Ogg walks pages from a beginning-of-stream page to the first
// end-of-stream page. A walk cut short by the probe window or by a broken
// page is sized up to the last complete page.
func Ogg(data []byte, lim Limits) Verdict {
	first, ok := oggPage(data, 0)
	if !ok || data[5]&oggFlagBOS == 0 {
		return Reject{}
	}

	pos := first
	if data[5]&oggFlagEOS != 0 {
		return Size{Bytes: clampMax(int64(pos), lim)}
	}
	for {
		n, ok := oggPage(data, pos)
		if !ok {
			break
		}
		flags := data[pos+5]
		pos += n
		if flags&oggFlagEOS != 0 {
			break
		}
	}
	return Size{Bytes: clampMax(int64(pos), lim)}
}

// oggPage returns the total length of the page starting at pos.
func oggPage(data []byte, pos int) (int, bool) {
	if pos+oggPageHeader > len(data) || !byteutil.HasPrefixAt(data, pos, oggMagic) || data[pos+4] != 0 {
		return 0, false
	}
	segments := int(data[pos+26])
	tableEnd := pos + oggPageHeader + segments
	if tableEnd > len(data) {
		return 0, false
	}
	size := oggPageHeader + segments
	for _, lacing := range data[pos+oggPageHeader : tableEnd] {
		size += int(lacing)
	}
	if pos+size > len(data) {
		return 0, false
	}
	return size, true
}
