package oracle

import "memcarve/pkg/byteutil"

const (
	lipEstimate = 10000
	bikMinSize  = 20
	bikMaxSize  = 500 << 20
	// BIK declares the size of everything after its first 8 bytes.
	bikPreamble = 8
)

var (
	lipMagic  = []byte("LIPS")
	bikMagic  = []byte("BIKi")
	tes4Magic = []byte("TES4")
	bsaMagic  = []byte("BSA\x00")
)

// LIP has no usable length field; a fixed estimate is used.
func LIP(data []byte, lim Limits) Verdict {
	if len(data) < 8 || !byteutil.HasPrefix(data, lipMagic) {
		return Reject{}
	}
	return Size{Bytes: clampMax(lipEstimate, lim)}
}

// BIK sizes a video from the little-endian length at offset 4.
func BIK(data []byte, lim Limits) Verdict {
	if len(data) < 8 || !byteutil.HasPrefix(data, bikMagic) {
		return Reject{}
	}
	declared, _ := byteutil.Uint32LE(data, 4)
	if declared < bikMinSize || declared > bikMaxSize {
		return Reject{}
	}
	return Size{Bytes: clampMax(int64(declared)+bikPreamble, lim)}
}

// GameData reads a plugin or archive's little-endian length at offset 4 and accepts it only when
// it already lies within the descriptor bounds.
func GameData(data []byte, lim Limits) Verdict {
	if !byteutil.HasPrefix(data, tes4Magic) && !byteutil.HasPrefix(data, bsaMagic) {
		return Reject{}
	}
	n, ok := byteutil.Uint32LE(data, 4)
	if !ok {
		return Reject{}
	}
	size := int64(n)
	if size < lim.Min || size > lim.Max {
		return Reject{}
	}
	return Size{Bytes: size}
}
