package oracle

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wide = Limits{Min: 1, Max: 1 << 30}

func buildDDSHeader(order binary.ByteOrder, width, height, mips uint32, fourCC string) []byte {
	hdr := make([]byte, 128)
	copy(hdr, "DDS ")
	order.PutUint32(hdr[4:], 124)
	order.PutUint32(hdr[12:], height)
	order.PutUint32(hdr[16:], width)
	order.PutUint32(hdr[28:], mips)
	copy(hdr[84:], fourCC)
	return hdr
}

func TestDDSLittleEndianDXT1(t *testing.T) {
	hdr := buildDDSHeader(binary.LittleEndian, 256, 256, 0, "DXT1")

	v := DDS(hdr, wide)
	got, ok := v.(SizeWithFlags)
	require.True(t, ok, "verdict %#v", v)
	assert.Equal(t, int64(128+(256/4)*(256/4)*8), got.Bytes)
	assert.Equal(t, int64(33024), got.Bytes)
	assert.False(t, got.BigEndian)
	assert.Empty(t, got.Ext)
	assert.Equal(t, "DXT1", got.Class)
}

func TestDDSEndiannessIsDetected(t *testing.T) {
	le, ok := ParseDDSHeader(buildDDSHeader(binary.LittleEndian, 512, 128, 1, "DXT5"))
	require.True(t, ok)
	be, ok := ParseDDSHeader(buildDDSHeader(binary.BigEndian, 512, 128, 1, "DXT5"))
	require.True(t, ok)

	assert.Equal(t, le.Width, be.Width)
	assert.Equal(t, le.Height, be.Height)
	assert.Equal(t, uint32(512), be.Width)
	assert.Equal(t, uint32(128), be.Height)
	assert.False(t, le.BigEndian)
	assert.True(t, be.BigEndian)
	assert.Equal(t, le.PayloadSize(), be.PayloadSize())

	v := DDS(buildDDSHeader(binary.BigEndian, 512, 128, 1, "DXT5"), wide).(SizeWithFlags)
	assert.True(t, v.BigEndian)
	assert.Equal(t, ".ddx", v.Ext)
}

func TestDDSMipChain(t *testing.T) {
	h, ok := ParseDDSHeader(buildDDSHeader(binary.LittleEndian, 16, 16, 3, "DXT1"))
	require.True(t, ok)
	// 16x16 -> 8x8 -> 4x4: 16 + 4 + 1 blocks of 8 bytes.
	assert.Equal(t, int64((16+4+1)*8), h.PayloadSize())
}

func TestDDSUncompressedUsesPitch(t *testing.T) {
	hdr := buildDDSHeader(binary.LittleEndian, 64, 32, 0, "")
	binary.LittleEndian.PutUint32(hdr[20:], 64*4)
	h, ok := ParseDDSHeader(hdr)
	require.True(t, ok)
	assert.Equal(t, int64(64*4*32), h.PayloadSize())
}

func TestDDSRejects(t *testing.T) {
	assert.IsType(t, Reject{}, DDS([]byte("DDS "), wide))
	assert.IsType(t, Reject{}, DDS(buildDDSHeader(binary.LittleEndian, 0, 0, 0, "DXT1"), wide))
	assert.IsType(t, Reject{}, DDS(buildDDSHeader(binary.LittleEndian, 40000, 16, 0, "DXT1"), wide))
	assert.IsType(t, Reject{}, DDS(make([]byte, 128), wide))
}

func TestDDSClampsToMax(t *testing.T) {
	v := DDS(buildDDSHeader(binary.LittleEndian, 4096, 4096, 0, "DXT5"), Limits{Min: 128, Max: 1 << 20})
	assert.Equal(t, int64(1<<20), v.(SizeWithFlags).Bytes)
}

func buildDDXHeader(magic string, version uint16, width, height uint32, format byte) []byte {
	hdr := make([]byte, 0x44)
	copy(hdr, magic)
	binary.LittleEndian.PutUint16(hdr[7:], version)
	binary.BigEndian.PutUint32(hdr[0x2C:], (width-1)|(height-1)<<13)
	binary.LittleEndian.PutUint32(hdr[0x28:], uint32(format)<<24)
	return hdr
}

func TestDDXHeaderFields(t *testing.T) {
	h, ok := ParseDDXHeader(buildDDXHeader("3XDO", 3, 512, 256, 0x52))
	require.True(t, ok)
	assert.Equal(t, uint32(512), h.Width)
	assert.Equal(t, uint32(256), h.Height)
	assert.Equal(t, "DXT1", h.Name)
	assert.False(t, h.Tiled)

	v := DDX(buildDDXHeader("3XDR", 4, 512, 256, 0x54), wide).(SizeWithFlags)
	assert.Equal(t, "DXT5", v.Class)
	assert.Greater(t, v.Bytes, int64(0x44))
	assert.True(t, v.BigEndian)
}

func TestDDXFallbackFormatByte(t *testing.T) {
	hdr := buildDDXHeader("3XDO", 3, 64, 64, 0)
	binary.LittleEndian.PutUint32(hdr[0x24:], 0x71)
	h, ok := ParseDDXHeader(hdr)
	require.True(t, ok)
	assert.Equal(t, byte(0x71), h.Format)
	assert.Equal(t, "ATI2", h.Name)
}

func TestDDXRejects(t *testing.T) {
	assert.IsType(t, Reject{}, DDX(buildDDXHeader("3XDO", 2, 64, 64, 0x52), wide))
	assert.IsType(t, Reject{}, DDX(buildDDXHeader("3XDO", 3, 8000, 64, 0x52), wide))
	assert.IsType(t, Reject{}, DDX(buildDDXHeader("3XDO", 3, 64, 64, 0x52)[:40], wide))
}

func buildRIFF(formatTag uint16, dataLen int) []byte {
	var buf bytes.Buffer
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody, formatTag)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(fmtBody)+8+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(fmtBody)))
	buf.Write(fmtBody)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestRIFFClassification(t *testing.T) {
	xma := buildRIFF(0x0166, 100)
	v := RIFF(xma, wide).(Size)
	assert.Equal(t, int64(len(xma)), v.Bytes)
	assert.Equal(t, "xma", v.Class)
	assert.Empty(t, v.Ext)

	pcm := buildRIFF(0x0001, 100)
	v = RIFF(pcm, wide).(Size)
	assert.Equal(t, int64(len(pcm)), v.Bytes)
	assert.Equal(t, ".wav", v.Ext)

	assert.IsType(t, Reject{}, RIFF([]byte("RIFF\x10\x00\x00\x00AVI "), wide))
}

func buildGamebryo(version string, blocks uint32) []byte {
	buf := []byte("Gamebryo File Format, Version " + version)
	buf = append(buf, 0)
	buf = append(buf, 0, 0, 0, 0)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], blocks)
	buf = append(buf, n[:]...)
	return append(buf, make([]byte, 128)...)
}

func TestGamebryoEstimates(t *testing.T) {
	v := Gamebryo(buildGamebryo("20.2.0.7", 12), wide).(Size)
	assert.Equal(t, int64(12*500+1000), v.Bytes)

	v = Gamebryo(buildGamebryo("4.0.0.2", 12), wide).(Size)
	assert.Equal(t, int64(50000), v.Bytes)

	v = Gamebryo(buildGamebryo("4.0.0.2", 12), Limits{Min: 100, Max: 1000}).(Size)
	assert.Equal(t, int64(1000), v.Bytes)

	noTerminator := append([]byte("Gamebryo File Format"), bytes.Repeat([]byte("x"), 100)...)
	assert.IsType(t, Reject{}, Gamebryo(noTerminator, wide))
}

func TestScriptStopsAtNextHeader(t *testing.T) {
	first := "scn MyScript\nshort counter\nbegin GameMode\n  set counter to 1\nend\n"
	data := []byte(first + "scn NextScript\nbegin GameMode\nend\n")

	v, ok := Script(data, Limits{Min: 20, Max: 100 << 10}).(SizeWithFlags)
	require.True(t, ok)
	assert.Equal(t, "MyScript", v.Name)
	assert.True(t, v.Complete)
	assert.Equal(t, int64(len(first)-1), v.Bytes)
	assert.Equal(t, "end", string(data[v.Bytes-3:v.Bytes]))
}

func TestScriptStopsAtGarbage(t *testing.T) {
	data := []byte("ScriptName Broken ; comment\nbegin OnActivate\n  activate\n\x00\x00\xffjunk")
	v, ok := Script(data, Limits{Min: 20, Max: 100 << 10}).(SizeWithFlags)
	require.True(t, ok)
	assert.Equal(t, "Broken", v.Name)
	assert.False(t, v.Complete)
	assert.Equal(t, "ScriptName Broken ; comment\nbegin OnActivate\n  activate", string(data[:v.Bytes]))
}

func TestScriptEndifIsNotTerminator(t *testing.T) {
	data := []byte("scn Partial\nbegin GameMode\n if x\n endif\n\x00")
	v := Script(data, Limits{Min: 20, Max: 100 << 10}).(SizeWithFlags)
	assert.False(t, v.Complete)
}

func TestScriptRejects(t *testing.T) {
	lim := Limits{Min: 20, Max: 100 << 10}
	assert.IsType(t, Reject{}, Script([]byte("scn Bad-Name\nbegin\nend\n"), lim))
	assert.IsType(t, Reject{}, Script([]byte("scn NoNewlineAtAll"), lim))
	assert.IsType(t, Reject{}, Script([]byte("scn Empty\nend"), lim))
	assert.IsType(t, Reject{}, Script([]byte("scene Foo\nbegin\nend\n"), lim))
}

func compress(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZlibRoundTripExactSize(t *testing.T) {
	payload := bytes.Repeat([]byte("<record id=\"1\">hello world</record>\n"), 400)
	stream := compress(t, payload)
	trailer := bytes.Repeat([]byte{0xAB, 0xCD, 0x00, 0x11}, 5000)
	data := append(append([]byte{}, stream...), trailer...)

	v, ok := Zlib(data, wide).(DecompressedStream)
	require.True(t, ok)
	assert.Equal(t, payload, v.Data)
	assert.Equal(t, int64(len(stream)), v.CompressedSize)
	assert.Equal(t, "xml", v.ContentType)
	assert.Equal(t, ".xml", v.Ext)
}

func TestZlibLargeStreamNeedsBiggerTrial(t *testing.T) {
	// Incompressible-ish payload so the stream outgrows the first trial sizes.
	payload := make([]byte, 40000)
	seed := uint32(7)
	for i := range payload {
		seed = seed*1664525 + 1013904223
		payload[i] = byte(seed >> 24)
	}
	stream := compress(t, payload)
	require.Greater(t, len(stream), 16<<10)

	v, ok := Zlib(append(stream, 0x00, 0x01, 0x02), wide).(DecompressedStream)
	require.True(t, ok)
	assert.Equal(t, payload, v.Data)
	assert.Equal(t, int64(len(stream)), v.CompressedSize)
	assert.Equal(t, "binary", v.ContentType)
}

func TestZlibRejects(t *testing.T) {
	assert.IsType(t, Reject{}, Zlib([]byte{0x78, 0x9c, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}, wide))
	assert.IsType(t, Reject{}, Zlib(compress(t, []byte("tiny")), wide))
	assert.IsType(t, Reject{}, Zlib([]byte{0x1f, 0x8b, 0, 0, 0, 0, 0, 0, 0, 0, 0}, wide))
}

func TestZlibOversizedPayloadCarriesReason(t *testing.T) {
	stream := compress(t, make([]byte, zlibMaxPayload+1))
	require.Less(t, len(stream), 1<<20)

	v, ok := Zlib(stream, wide).(Reject)
	require.True(t, ok)
	assert.Contains(t, v.Reason, "64 MiB")

	_, ok = Zlib(compress(t, make([]byte, 4096)), wide).(DecompressedStream)
	assert.True(t, ok)
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunkTypeBytes := []byte(chunkType)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc32.ChecksumIEEE(append(chunkTypeBytes, data...)))

	chunk := make([]byte, 0, 12+len(data))
	chunk = append(chunk, lenBuf...)
	chunk = append(chunk, chunkTypeBytes...)
	chunk = append(chunk, data...)
	chunk = append(chunk, crcBuf...)
	return chunk
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPNGWalksToIEND(t *testing.T) {
	encoded := encodePNG(t)
	data := append(append([]byte{}, encoded...), bytes.Repeat([]byte{0xEE}, 64)...)

	v := PNG(data, wide).(Size)
	assert.Equal(t, int64(len(encoded)), v.Bytes)
}

func TestPNGWithExtraChunks(t *testing.T) {
	encoded := encodePNG(t)
	insertAt := len(encoded) - 12
	out := append([]byte{}, encoded[:insertAt]...)
	out = append(out, buildPNGChunk("tEXt", []byte("Title\x00memory"))...)
	out = append(out, encoded[insertAt:]...)

	v := PNG(out, wide).(Size)
	assert.Equal(t, int64(len(out)), v.Bytes)
}

func TestPNGRejectsMissingIHDR(t *testing.T) {
	data := append(append([]byte{}, pngSignature...), buildPNGChunk("IDAT", make([]byte, 30))...)
	assert.IsType(t, Reject{}, PNG(data, wide))
}

func TestJPEGFindsEndOfImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	encoded := buf.Bytes()

	data := append(append([]byte{}, encoded...), 0x12, 0x34, 0xff, 0xd9)
	v := JPEG(data, wide).(Size)
	assert.Equal(t, int64(len(encoded)), v.Bytes)

	assert.IsType(t, Reject{}, JPEG(encoded[:len(encoded)/2], wide))
	assert.IsType(t, Reject{}, JPEG([]byte{0xff, 0xd8, 0xff, 0x00, 0x00}, wide))
}

func buildOggPage(flags byte, body []byte) []byte {
	page := make([]byte, 27)
	copy(page, "OggS")
	page[5] = flags
	var segments []byte
	rest := len(body)
	for rest >= 255 {
		segments = append(segments, 255)
		rest -= 255
	}
	segments = append(segments, byte(rest))
	page[26] = byte(len(segments))
	page = append(page, segments...)
	return append(page, body...)
}

func TestOggWalksToEndOfStream(t *testing.T) {
	var data []byte
	data = append(data, buildOggPage(oggFlagBOS, make([]byte, 30))...)
	data = append(data, buildOggPage(0, make([]byte, 600))...)
	data = append(data, buildOggPage(oggFlagEOS, make([]byte, 10))...)
	want := len(data)
	data = append(data, buildOggPage(oggFlagBOS, make([]byte, 30))...)

	v := Ogg(data, wide).(Size)
	assert.Equal(t, int64(want), v.Bytes)

	assert.IsType(t, Reject{}, Ogg(buildOggPage(0, make([]byte, 40)), wide))
}

func TestConsoleHeaders(t *testing.T) {
	xex := make([]byte, 64)
	copy(xex, "XEX2")
	binary.BigEndian.PutUint32(xex[0x10:], 0x2000)
	binary.BigEndian.PutUint32(xex[0x14:], 0x30000)
	assert.Equal(t, int64(0x30000), XEX(xex, wide).(Size).Bytes)

	binary.BigEndian.PutUint32(xex[0x14:], 0xFFFFFFFF)
	assert.Equal(t, int64(0x2000), XEX(xex, wide).(Size).Bytes)

	xdbf := make([]byte, 32)
	copy(xdbf, "XDBF")
	binary.BigEndian.PutUint32(xdbf[8:], 10)
	binary.BigEndian.PutUint32(xdbf[12:], 3)
	binary.BigEndian.PutUint32(xdbf[16:], 4)
	assert.Equal(t, int64(24+10*18+4*8+3*1024), XDBF(xdbf, wide).(Size).Bytes)

	xuib := make([]byte, 16)
	copy(xuib, "XUIB")
	binary.BigEndian.PutUint32(xuib[8:], 4096)
	assert.Equal(t, int64(4096), XUI(xuib, wide).(Size).Bytes)
	copy(xuib, "XUIS")
	assert.Equal(t, int64(50000), XUI(xuib, wide).(Size).Bytes)

	stfs := make([]byte, 0x400)
	copy(stfs, "CON ")
	binary.BigEndian.PutUint32(stfs[0x344:], 0x8000)
	assert.Equal(t, int64(0x8000+0x1000), STFS(stfs, wide).(Size).Bytes)
	assert.IsType(t, Reject{}, STFS(stfs[:0x100], wide))
}

func TestSmallFormats(t *testing.T) {
	assert.Equal(t, int64(10000), LIP([]byte("LIPS\x00\x00\x00\x00"), wide).(Size).Bytes)

	bik := []byte("BIKi\x00\x10\x00\x00")
	assert.Equal(t, int64(0x1000+8), BIK(bik, wide).(Size).Bytes)
	assert.IsType(t, Reject{}, BIK([]byte("BIKi\x01\x00\x00\x00"), wide))

	tes := []byte("TES4\x00\x01\x00\x00")
	assert.Equal(t, int64(256), GameData(tes, Limits{Min: 24, Max: 1 << 20}).(Size).Bytes)
	assert.IsType(t, Reject{}, GameData(tes, Limits{Min: 24, Max: 100}))

	bsa := []byte("BSA\x00\x00\x02\x00\x00")
	assert.Equal(t, int64(512), GameData(bsa, Limits{Min: 36, Max: 1 << 20}).(Size).Bytes)
	assert.IsType(t, Reject{}, GameData([]byte("XXXX\x00\x01\x00\x00"), Limits{Min: 24, Max: 1 << 20}))
	assert.IsType(t, Reject{}, GameData([]byte("TES4\x00"), Limits{Min: 24, Max: 1 << 20}))
}

func TestDispatchTable(t *testing.T) {
	assert.IsType(t, Size{}, Evaluate("sdt", []byte("SDAT"), Limits{Min: 20, Max: 100}))
	assert.Equal(t, int64(20), Evaluate("sdt", nil, Limits{Min: 20, Max: 100}).(Size).Bytes)
	assert.Equal(t, int64(1024), Fallback(nil, Limits{}).(Size).Bytes)

	hdr := buildDDSHeader(binary.LittleEndian, 8, 8, 0, "DXT1")
	assert.IsType(t, SizeWithFlags{}, Evaluate("dds", hdr, wide))
	assert.IsType(t, Reject{}, Evaluate("zlib_best", hdr, wide))
}

func TestOraclesNeverPanicOnTruncatedInput(t *testing.T) {
	samples := [][]byte{
		buildDDSHeader(binary.BigEndian, 64, 64, 4, "DXT1"),
		buildDDXHeader("3XDO", 3, 64, 64, 0x52),
		buildRIFF(0x0165, 20),
		buildGamebryo("20.0.0.5", 4),
		[]byte("scn Foo\nbegin GameMode\nend\n"),
		append([]byte{0x78, 0x9c}, bytes.Repeat([]byte{0x55}, 64)...),
		append(append([]byte{}, pngSignature...), buildPNGChunk("IHDR", make([]byte, 13))...),
		{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
		buildOggPage(oggFlagBOS, make([]byte, 40)),
	}
	for id := range table {
		for _, s := range samples {
			for n := 0; n <= len(s); n++ {
				assert.NotPanics(t, func() { Evaluate(id, s[:n], Limits{Min: 1, Max: 1 << 20}) }, id)
			}
		}
	}
}
