package oracle

import "memcarve/pkg/byteutil"

const (
	riffHeaderSize = 12
	// Sub-chunks are only walked this far to classify the payload.
	riffLookahead = 200
)

var (
	riffMagic  = []byte("RIFF")
	waveMagic  = []byte("WAVE")
	xma2Chunk  = []byte("XMA2")
	fmtChunk   = []byte("fmt ")
	xmaFormats = map[uint16]bool{0x0165: true, 0x0166: true}
)

// RIFF sizes a RIFF/WAVE container from its declared length. The sub-chunks
// are walked only to tell console audio from generic PCM; generic payloads
// are written with a .wav extension.
func RIFF(data []byte, lim Limits) Verdict {
	if len(data) < riffHeaderSize || !byteutil.HasPrefix(data, riffMagic) || !byteutil.HasPrefixAt(data, 8, waveMagic) {
		return Reject{}
	}
	declared, _ := byteutil.Uint32LE(data, 4)
	size := int64(declared) + 8

	if isConsoleAudio(data) {
		return Size{Bytes: size, Class: "xma"}
	}
	return Size{Bytes: size, Ext: ".wav", Class: "pcm"}
}

func isConsoleAudio(data []byte) bool {
	end := min(riffLookahead, len(data)-8)
	for pos := riffHeaderSize; pos < end; {
		if byteutil.HasPrefixAt(data, pos, xma2Chunk) {
			return true
		}
		if byteutil.HasPrefixAt(data, pos, fmtChunk) {
			if tag, ok := byteutil.Uint16LE(data, pos+8); ok && xmaFormats[tag] {
				return true
			}
		}
		n, ok := byteutil.Uint32LE(data, pos+4)
		if !ok {
			return false
		}
		step := 8 + (int64(n)+1)&^1
		if step > int64(end-pos) {
			return false
		}
		pos += int(step)
	}
	return false
}
