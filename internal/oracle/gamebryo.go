package oracle

import (
	"bytes"
	"strings"

	"memcarve/pkg/byteutil"
)

const (
	gamebryoMinHeader     = 64
	gamebryoVersionOffset = 22
	gamebryoVersionSpan   = 40
	gamebryoBlockScan     = 60
	gamebryoMaxBlocks     = 10000
	// Empirical average bytes per block, plus a fixed header allowance.
	gamebryoBytesPerBlock = 500
	gamebryoBaseBytes     = 1000
	gamebryoDefaultSize   = 50000
	gamebryoCeiling       = 20 << 20
)

var gamebryoMagic = []byte("Gamebryo File Format")

// Gamebryo estimates the size of a scene-graph file (model, animation,
// morph or tint; all four share the same magic). For 20.x headers a small
// block count found shortly after the version string is turned into a byte
// estimate, otherwise a fixed conservative size is used.
func Gamebryo(data []byte, lim Limits) Verdict {
	if len(data) < gamebryoMinHeader || !byteutil.HasPrefix(data, gamebryoMagic) {
		return Reject{}
	}
	end := min(gamebryoVersionOffset+gamebryoVersionSpan, len(data))
	nul := bytes.IndexByte(data[gamebryoVersionOffset:end], 0)
	if nul < 0 {
		return Reject{}
	}
	nul += gamebryoVersionOffset
	version := strings.TrimSpace(string(data[gamebryoVersionOffset:nul]))

	size := int64(gamebryoDefaultSize)
	if strings.Contains(version, "20.") {
		if blocks, ok := gamebryoBlockCount(data, nul+1); ok {
			size = min(blocks*gamebryoBytesPerBlock+gamebryoBaseBytes, gamebryoCeiling)
		}
	}
	return Size{Bytes: clampMax(size, lim), Class: version}
}

func gamebryoBlockCount(data []byte, from int) (int64, bool) {
	end := min(from+gamebryoBlockScan, len(data)-4)
	for off := from; off < end; off += 4 {
		n, ok := byteutil.Uint32LE(data, off)
		if ok && n >= 1 && n <= gamebryoMaxBlocks {
			return int64(n), true
		}
	}
	return 0, false
}
