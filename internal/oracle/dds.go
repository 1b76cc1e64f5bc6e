package oracle

import (
	"strings"

	"memcarve/pkg/byteutil"
)

const (
	ddsHeaderSize    = 128
	ddsHeaderField   = 124
	ddsMaxDimension  = 16384
	maxMipLevels     = 16
	consoleDDXSuffix = ".ddx"
)

var ddsMagic = []byte("DDS ")

// DDSHeader is the part of a surface header needed to size the surface.
type DDSHeader struct {
	Width     uint32
	Height    uint32
	Pitch     uint32
	MipCount  uint32
	FourCC    string
	BigEndian bool
}

// ParseDDSHeader reads the 128-byte surface header. Fields are tried
// little-endian first; when that yields an implausible surface the same
// offsets are re-read big-endian, which is how console captures store them.
func ParseDDSHeader(data []byte) (DDSHeader, bool) {
	if len(data) < ddsHeaderSize || !byteutil.HasPrefix(data, ddsMagic) {
		return DDSHeader{}, false
	}

	h := readDDSFields(data, false)
	headerSize, _ := byteutil.Uint32LE(data, 4)
	if headerSize != ddsHeaderField || !plausibleSurface(h) {
		h = readDDSFields(data, true)
	}
	if !plausibleSurface(h) {
		return DDSHeader{}, false
	}

	h.FourCC = strings.TrimRight(string(data[84:88]), "\x00")
	return h, true
}

func readDDSFields(data []byte, bigEndian bool) DDSHeader {
	var h DDSHeader
	h.Height, _ = byteutil.Uint32(data, 12, bigEndian)
	h.Width, _ = byteutil.Uint32(data, 16, bigEndian)
	h.Pitch, _ = byteutil.Uint32(data, 20, bigEndian)
	h.MipCount, _ = byteutil.Uint32(data, 28, bigEndian)
	h.BigEndian = bigEndian
	return h
}

func plausibleSurface(h DDSHeader) bool {
	return h.Width > 0 && h.Height > 0 && h.Width <= ddsMaxDimension && h.Height <= ddsMaxDimension
}

// blockBytes returns the size of one 4x4 block, and whether the format is
// block compressed at all.
func blockBytes(fourCC string) (int64, bool) {
	switch fourCC {
	case "DXT1", "ATI1", "BC4U", "BC4S":
		return 8, true
	case "DXT2", "DXT3", "DXT4", "DXT5", "ATI2", "BC5U", "BC5S":
		return 16, true
	default:
		return 16, false
	}
}

// PayloadSize returns the surface data size, excluding the header, summed
// over the mip chain.
func (h DDSHeader) PayloadSize() int64 {
	bpb, compressed := blockBytes(h.FourCC)
	if !compressed && h.Pitch > 0 {
		return uncompressedSize(int64(h.Height), int64(h.Pitch), h.MipCount, bpb)
	}
	return compressedSize(int64(h.Width), int64(h.Height), h.MipCount, bpb)
}

func compressedSize(width, height int64, mips uint32, bpb int64) int64 {
	total := ((width + 3) / 4) * ((height + 3) / 4) * bpb
	w, hgt := width, height
	for i := uint32(1); i < min(mips, maxMipLevels); i++ {
		w = max(1, w/2)
		hgt = max(1, hgt/2)
		total += max(1, (w+3)/4) * max(1, (hgt+3)/4) * bpb
	}
	return total
}

func uncompressedSize(height, pitch int64, mips uint32, bpb int64) int64 {
	total := pitch * height
	level := total
	for i := uint32(1); i < min(mips, maxMipLevels); i++ {
		level /= 4
		total += max(level, bpb)
	}
	return total
}

// DDS sizes a surface from its header. Big-endian surfaces are console
// textures and are written with the console extension.
func DDS(data []byte, lim Limits) Verdict {
	h, ok := ParseDDSHeader(data)
	if !ok {
		return Reject{}
	}
	v := SizeWithFlags{
		Bytes:     clampMax(ddsHeaderSize+h.PayloadSize(), lim),
		BigEndian: h.BigEndian,
		Complete:  true,
		Class:     h.FourCC,
	}
	if h.BigEndian {
		v.Ext = consoleDDXSuffix
	}
	return v
}
