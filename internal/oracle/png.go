package oracle

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	pngMinSize     = 33 // signature + IHDR
	pngMaxChunk    = 50 << 20
	pngChunkFrame  = 12 // length + type + CRC
	pngSigLen      = 8
	pngIHDRDataLen = 13
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// PNG walks the chunk list from the signature to IEND. A walk that runs off
// the probe window ends after the chunk it was in; one that meets a chunk
// that cannot be real ends before it.
func PNG(data []byte, lim Limits) Verdict {
	if len(data) < pngMinSize || !bytes.HasPrefix(data, pngSignature) {
		return Reject{}
	}

	r := bytes.NewReader(data[pngSigLen:])
	size := int64(pngSigLen)
	first := true
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		chunkName := string(hdr[4:])

		if first {
			if chunkName != "IHDR" || length != pngIHDRDataLen {
				return Reject{}
			}
			first = false
		}
		if length > pngMaxChunk || !isChunkName(hdr[4:]) {
			break
		}

		size += int64(length) + pngChunkFrame
		if chunkName == "IEND" {
			break
		}
		if _, err := r.Seek(int64(length)+4, io.SeekCurrent); err != nil {
			break
		}
		if size > pngMaxChunk {
			break
		}
	}
	return Size{Bytes: clampMax(size, lim)}
}

func isChunkName(b []byte) bool {
	for _, c := range b {
		if !(('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')) {
			return false
		}
	}
	return true
}
