package oracle

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"

	"memcarve/pkg/sniff"
)

const (
	zlibMinProbe = 10
	// Payloads this small are almost always false positives.
	zlibMinPayload = 50
	zlibMaxPayload = 64 << 20
)

var zlibHeaders = [][]byte{
	{0x78, 0x01},
	{0x78, 0x5e},
	{0x78, 0x9c},
	{0x78, 0xda},
}

// There is no trailer giving the compressed length, so inflation is tried on
// growing prefixes of the probe buffer.
var zlibTrialSizes = []int{1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20}

var errPayloadTooLarge = errors.New("inflated payload exceeds 64 MiB")

// Zlib inflates a zlib stream and classifies what came out. The compressed
// size reported is the exact number of bytes the stream occupies, header and
// checksum included.
func Zlib(data []byte, lim Limits) Verdict {
	if len(data) < zlibMinProbe || !validZlibHeader(data) {
		return Reject{}
	}

	trials := append(zlibTrialSizes[:len(zlibTrialSizes):len(zlibTrialSizes)], len(data))
	tried := 0
	for _, n := range trials {
		n = min(n, len(data))
		if n <= tried {
			continue
		}
		tried = n

		payload, consumed, err := inflate(data[:n])
		if errors.Is(err, errPayloadTooLarge) {
			return Reject{Reason: errPayloadTooLarge.Error()}
		}
		if err != nil {
			continue
		}
		if len(payload) <= zlibMinPayload {
			return Reject{}
		}

		kind, hint := sniff.Detect(payload)
		return DecompressedStream{
			ContentType:    kind.String(),
			Ext:            kind.Ext(),
			CompressedSize: consumed,
			Data:           payload,
			NameHint:       hint,
		}
	}
	return Reject{}
}

func validZlibHeader(data []byte) bool {
	for _, h := range zlibHeaders {
		if bytes.HasPrefix(data, h) {
			return true
		}
	}
	return false
}

// inflate decompresses window and reports how many bytes of it the stream
// consumed. The decompressor is fed one byte at a time through ReadByte, so
// it stops exactly at the end of the stream's checksum.
func inflate(window []byte) ([]byte, int64, error) {
	src := &byteFeeder{buf: window}
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, 0, err
	}
	defer zr.Close()

	var out bytes.Buffer
	n, err := io.Copy(&out, io.LimitReader(zr, zlibMaxPayload+1))
	if err != nil {
		return nil, 0, err
	}
	if n > zlibMaxPayload {
		return nil, 0, errPayloadTooLarge
	}
	return out.Bytes(), int64(src.pos), nil
}

// byteFeeder hands out its buffer one byte per call.
type byteFeeder struct {
	buf []byte
	pos int
}

func (f *byteFeeder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c, err := f.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = c
	return 1, nil
}

func (f *byteFeeder) ReadByte() (byte, error) {
	if f.pos >= len(f.buf) {
		return 0, io.EOF
	}
	c := f.buf[f.pos]
	f.pos++
	return c, nil
}
