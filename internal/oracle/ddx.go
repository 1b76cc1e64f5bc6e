package oracle

import (
	"fmt"

	"memcarve/pkg/byteutil"
)

// Console texture layout:
//
//	0x00 magic "3XDO" / "3XDR"
//	0x07 version (LE uint16, >= 3)
//	0x08 GPU texture header (52 bytes); format words at 0x24/0x28,
//	     packed size word at 0x2C (big-endian)
//	0x44 compressed texture data
const (
	ddxHeaderSize    = 0x44
	ddxMinVersion    = 3
	ddxMaxDimension  = 4096
	ddxFormatWord    = 0x18 + 12
	ddxFormatWordAlt = 0x18 + 16
	ddxSizeWord      = 0x08 + 36

	// The payload is compressed with a proprietary codec, so its real length
	// is unknown. This ratio of the uncompressed block size is the estimate.
	ddxCompressionRatio = 0.7
)

var (
	ddxMagicO = []byte("3XDO")
	ddxMagicR = []byte("3XDR")
)

var gpuFormats = map[byte]string{
	0x12: "DXT1",
	0x13: "DXT3",
	0x14: "DXT5",
	0x52: "DXT1",
	0x53: "DXT3",
	0x54: "DXT5",
	0x71: "ATI2",
	0x7B: "ATI1",
	0x82: "DXT1",
	0x86: "DXT1",
	0x88: "DXT5",
}

// DDXHeader holds the decoded console texture header fields.
type DDXHeader struct {
	Tiled   bool
	Version uint16
	Width   uint32
	Height  uint32
	Format  byte
	Name    string
}

// ParseDDXHeader decodes a console texture header.
func ParseDDXHeader(data []byte) (DDXHeader, bool) {
	if len(data) < ddxHeaderSize {
		return DDXHeader{}, false
	}
	var h DDXHeader
	switch {
	case byteutil.HasPrefix(data, ddxMagicO):
	case byteutil.HasPrefix(data, ddxMagicR):
		h.Tiled = true
	default:
		return DDXHeader{}, false
	}

	h.Version, _ = byteutil.Uint16LE(data, 7)
	if h.Version < ddxMinVersion {
		return DDXHeader{}, false
	}

	// Two 13-bit fields: width-1 in bits 0-12, height-1 in bits 13-25.
	packed, _ := byteutil.Uint32BE(data, ddxSizeWord)
	h.Width = packed&0x1FFF + 1
	h.Height = (packed>>13)&0x1FFF + 1
	if h.Width > ddxMaxDimension || h.Height > ddxMaxDimension {
		return DDXHeader{}, false
	}

	primary, _ := byteutil.Uint32LE(data, ddxFormatWordAlt)
	fallback, _ := byteutil.Uint32LE(data, ddxFormatWord)
	h.Format = byte(primary >> 24)
	if h.Format == 0 {
		h.Format = byte(fallback)
	}
	if name, ok := gpuFormats[h.Format]; ok {
		h.Name = name
	} else {
		h.Name = fmt.Sprintf("Unknown(0x%02X)", h.Format)
	}
	return h, true
}

// EstimatedSize is the header plus a fixed fraction of the uncompressed
// block data. It is an estimate by construction.
func (h DDXHeader) EstimatedSize() int64 {
	var bpb int64 = 16
	if h.Name == "DXT1" || h.Name == "ATI1" {
		bpb = 8
	}
	uncompressed := ((int64(h.Width) + 3) / 4) * ((int64(h.Height) + 3) / 4) * bpb
	return ddxHeaderSize + int64(float64(uncompressed)*ddxCompressionRatio)
}

// DDX estimates the size of a console-tiled compressed texture.
func DDX(data []byte, lim Limits) Verdict {
	h, ok := ParseDDXHeader(data)
	if !ok {
		return Reject{}
	}
	return SizeWithFlags{
		Bytes:     clampMax(h.EstimatedSize(), lim),
		BigEndian: true,
		Complete:  true,
		Class:     h.Name,
	}
}
