// Package sniff classifies a decompressed payload by its leading bytes.
package sniff

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"memcarve/pkg/byteutil"
)

// Kind identifies a recognised payload type.
type Kind int

const (
	KindBinary Kind = iota
	KindNIF
	KindVNML
	KindDataChunk
	KindDDS
	KindDDX
	KindESP
	KindBSA
	KindOgg
	KindPNG
	KindBIK
	KindLIP
	KindXEX
	KindXDBF
	KindXUI
	KindXMA
	KindRIFF
	KindScript
	KindXML
	KindText
)

type kindInfo struct {
	name string
	ext  string
}

var kinds = map[Kind]kindInfo{
	KindBinary:    {"binary", ".bin"},
	KindNIF:       {"nif", ".nif"},
	KindVNML:      {"vnml", ".vnml"},
	KindDataChunk: {"data_chunk", ".data"},
	KindDDS:       {"dds", ".dds"},
	KindDDX:       {"ddx", ".ddx"},
	KindESP:       {"esp", ".esp"},
	KindBSA:       {"bsa", ".bsa"},
	KindOgg:       {"ogg", ".ogg"},
	KindPNG:       {"png", ".png"},
	KindBIK:       {"bik", ".bik"},
	KindLIP:       {"lip", ".lip"},
	KindXEX:       {"xex", ".xex"},
	KindXDBF:      {"xdbf", ".xdbf"},
	KindXUI:       {"xui", ".xui"},
	KindXMA:       {"xma", ".xma"},
	KindRIFF:      {"riff", ".riff"},
	KindScript:    {"script", ".txt"},
	KindXML:       {"xml", ".xml"},
	KindText:      {"text", ".txt"},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "binary"
}

// Ext returns the file extension used for payloads of this kind.
func (k Kind) Ext() string {
	if info, ok := kinds[k]; ok {
		return info.ext
	}
	return ".bin"
}

var (
	gamebryoSig = []byte("Gamebryo File Format")
	dataSig     = []byte("DATA")
	riffSig     = []byte("RIFF")
)

// Checked in order, so longer prefixes that share a start come first.
var prefixes = []struct {
	sig  []byte
	kind Kind
}{
	{[]byte("DDS "), KindDDS},
	{[]byte("3XDO"), KindDDX},
	{[]byte("3XDR"), KindDDX},
	{[]byte("TES4"), KindESP},
	{[]byte("BSA\x00"), KindBSA},
	{[]byte("OggS"), KindOgg},
	{[]byte{0x89, 'P', 'N', 'G'}, KindPNG},
	{[]byte("BIKi"), KindBIK},
	{[]byte("LIPS"), KindLIP},
	{[]byte("XEX2"), KindXEX},
	{[]byte("XDBF"), KindXDBF},
	{[]byte("XUIS"), KindXUI},
	{[]byte("XUIB"), KindXUI},
}

const sampleSize = 500

// Detect classifies payload. hint is a short name recovered from the
// payload itself when one is available.
func Detect(payload []byte) (kind Kind, hint string) {
	if byteutil.HasPrefix(payload, gamebryoSig) {
		return KindNIF, nifAuthor(payload)
	}

	if byteutil.HasPrefix(payload, dataSig) {
		if bytes.Contains(head(payload, 20), []byte("VNML")) {
			return KindVNML, ""
		}
		return KindDataChunk, ""
	}

	for _, p := range prefixes {
		if byteutil.HasPrefix(payload, p.sig) {
			return p.kind, ""
		}
	}

	if byteutil.HasPrefix(payload, riffSig) {
		sample := head(payload, 100)
		if bytes.Contains(sample, []byte("XMA2")) || bytes.Contains(sample, []byte("fmt ")) {
			return KindXMA, ""
		}
		return KindRIFF, ""
	}

	if isScript(payload) {
		return KindScript, ""
	}

	if len(payload) > 0 && payload[0] == '<' && isMarkup(head(payload, sampleSize)) {
		return KindXML, ""
	}

	if len(payload) > 20 && byteutil.PrintableRatio(head(payload, sampleSize)) > 0.85 {
		return KindText, ""
	}

	return KindBinary, ""
}

func isScript(payload []byte) bool {
	for _, p := range [][]byte{[]byte("scn"), []byte("Scn"), []byte("SCN"), []byte("ScriptName")} {
		if byteutil.HasPrefix(payload, p) {
			return true
		}
	}
	return false
}

func isMarkup(sample []byte) bool {
	if !utf8.Valid(sample) {
		return false
	}
	open := bytes.Count(sample, []byte("<"))
	closing := bytes.Count(sample, []byte(">"))
	if open == 0 || closing == 0 {
		return false
	}
	// At least one bracket per hundred bytes.
	return (open+closing)*100 >= len(sample)
}

// nifAuthor returns the token before the "Do Nothing" export marker that
// some scene-graph exporters write into the header.
func nifAuthor(payload []byte) string {
	text := string(head(payload, sampleSize))
	idx := strings.Index(text, "Do Nothing")
	if idx < 0 {
		return ""
	}
	fields := strings.Fields(text[:idx])
	if len(fields) == 0 {
		return ""
	}
	return sanitizeHint(fields[len(fields)-1])
}

func sanitizeHint(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && (r == '_' || r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func head(buf []byte, n int) []byte {
	if len(buf) < n {
		return buf
	}
	return buf[:n]
}
