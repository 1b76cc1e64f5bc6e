package oracle

import "memcarve/pkg/byteutil"

// Console system formats store their header fields big-endian. Any field may
// be garbage in a damaged capture, so every derived size is clamped to a
// generous ceiling.
const (
	xexMinHeader    = 24
	xexMinImage     = 4096
	xexImageLimit   = 100 << 20
	xexImageCeiling = 50 << 20

	xdbfHeaderSize    = 24
	xdbfEntryRecord   = 18
	xdbfFreeRecord    = 8
	xdbfAvgEntryBytes = 1024
	xdbfCeiling       = 10 << 20

	xuiMinHeader   = 16
	xuiDefaultSize = 50000
	xuiCeiling     = 10 << 20

	stfsMinHeader     = 0x200
	stfsContentSize   = 0x344
	stfsMetadataBytes = 0x1000
	stfsContentLimit  = 100 << 20
	stfsDefaultSize   = 100000
)

var (
	xexMagic  = []byte("XEX2")
	xdbfMagic = []byte("XDBF")
	xuisMagic = []byte("XUIS")
	xuibMagic = []byte("XUIB")
	stfsMagic = [][]byte{[]byte("PIRS"), []byte("CON "), []byte("LIVE")}
)

// XEX sizes an executable image from its declared image size, falling back
// to the header size.
func XEX(data []byte, lim Limits) Verdict {
	if len(data) < xexMinHeader || !byteutil.HasPrefix(data, xexMagic) {
		return Reject{}
	}
	headerSize, _ := byteutil.Uint32BE(data, 0x10)
	imageSize, _ := byteutil.Uint32BE(data, 0x14)

	size := max(int64(headerSize), xexMinImage)
	if imageSize > 0 && imageSize < xexImageLimit {
		size = min(int64(imageSize), xexImageCeiling)
	}
	return Size{Bytes: clampMax(size, lim)}
}

// XDBF sizes a dashboard data file from its entry and free-space tables plus
// an average payload per entry.
func XDBF(data []byte, lim Limits) Verdict {
	if len(data) < xdbfHeaderSize || !byteutil.HasPrefix(data, xdbfMagic) {
		return Reject{}
	}
	entryTable, _ := byteutil.Uint32BE(data, 8)
	entryCount, _ := byteutil.Uint32BE(data, 12)
	freeTable, _ := byteutil.Uint32BE(data, 16)

	size := xdbfHeaderSize + int64(entryTable)*xdbfEntryRecord + int64(freeTable)*xdbfFreeRecord +
		int64(entryCount)*xdbfAvgEntryBytes
	return Size{Bytes: clampMax(min(size, xdbfCeiling), lim)}
}

// XUI sizes a UI scene or binary. Binaries may declare their size at 0x08;
// anything else gets a fixed estimate.
func XUI(data []byte, lim Limits) Verdict {
	if len(data) < xuiMinHeader {
		return Reject{}
	}
	switch {
	case byteutil.HasPrefix(data, xuibMagic):
		if declared, ok := byteutil.Uint32BE(data, 8); ok && declared > xuiMinHeader && declared < xuiCeiling {
			return Size{Bytes: clampMax(int64(declared), lim), Class: "binary"}
		}
		return Size{Bytes: clampMax(xuiDefaultSize, lim), Class: "binary"}
	case byteutil.HasPrefix(data, xuisMagic):
		return Size{Bytes: clampMax(xuiDefaultSize, lim), Class: "scene"}
	}
	return Reject{}
}

// STFS sizes a content package from its declared content size plus the
// metadata block.
func STFS(data []byte, lim Limits) Verdict {
	if len(data) < stfsMinHeader {
		return Reject{}
	}
	matched := false
	for _, m := range stfsMagic {
		if byteutil.HasPrefix(data, m) {
			matched = true
			break
		}
	}
	if !matched {
		return Reject{}
	}
	if content, ok := byteutil.Uint32BE(data, stfsContentSize); ok && content > 0 && content < stfsContentLimit {
		return Size{Bytes: clampMax(int64(content)+stfsMetadataBytes, lim)}
	}
	return Size{Bytes: clampMax(stfsDefaultSize, lim)}
}
