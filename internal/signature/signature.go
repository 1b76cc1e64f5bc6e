// Package signature holds the registry of carveable formats: their magic
// bytes, output extension, plausible size range and destination folder.
package signature

import (
	"fmt"
	"sort"
)

// Probe selects how many bytes the driver reads at a hit before asking the
// format's oracle for a verdict.
type Probe int

const (
	// ProbeHeader formats are sized from a fixed header.
	ProbeHeader Probe = iota
	// ProbeContent formats are sized by scanning their content, up to MaxSize.
	ProbeContent
	// ProbeStream formats are walked chunk by chunk or inflated.
	ProbeStream
)

const (
	headerProbeSize = 2048
	streamProbeSize = 1 << 20
)

// Descriptor describes one carveable format.
type Descriptor struct {
	ID          string
	Magic       []byte
	Ext         string
	Description string
	MinSize     int64
	MaxSize     int64
	Folder      string
	Probe       Probe
}

// ProbeSize returns the number of bytes to read at a hit.
func (d Descriptor) ProbeSize() int64 {
	switch d.Probe {
	case ProbeContent:
		return d.MaxSize
	case ProbeStream:
		return min(d.MaxSize, streamProbeSize)
	default:
		return headerProbeSize
	}
}

// Dir returns the output subdirectory for the format.
func (d Descriptor) Dir() string {
	if d.Folder != "" {
		return d.Folder
	}
	return d.ID
}

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

var (
	gamebryoMagic = []byte("Gamebryo File Format")
	riffMagic     = []byte("RIFF")
	tes4Magic     = []byte("TES4")
	pngMagic      = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

// registry order is the order in which formats are searched within a window.
var registry = []Descriptor{
	{ID: "dds", Magic: []byte("DDS "), Ext: ".dds", Description: "DirectDraw Surface texture", MinSize: 128, MaxSize: 50 * mib, Folder: "textures"},
	{ID: "ddx_3xdo", Magic: []byte("3XDO"), Ext: ".ddx", Description: "Console DDX texture (3XDO)", MinSize: 68, MaxSize: 50 * mib, Folder: "ddx"},
	{ID: "ddx_3xdr", Magic: []byte("3XDR"), Ext: ".ddx", Description: "Console DDX texture (3XDR engine-tiled)", MinSize: 68, MaxSize: 50 * mib, Folder: "ddx"},

	{ID: "nif", Magic: gamebryoMagic, Ext: ".nif", Description: "Gamebryo scene-graph model", MinSize: 100, MaxSize: 20 * mib},
	{ID: "kf", Magic: gamebryoMagic, Ext: ".kf", Description: "Gamebryo animation", MinSize: 100, MaxSize: 10 * mib},
	{ID: "egm", Magic: gamebryoMagic, Ext: ".egm", Description: "FaceGen morph", MinSize: 100, MaxSize: 5 * mib},
	{ID: "egt", Magic: gamebryoMagic, Ext: ".egt", Description: "FaceGen tint", MinSize: 100, MaxSize: 1 * mib},

	{ID: "xma", Magic: riffMagic, Ext: ".xma", Description: "RIFF audio (XMA or PCM)", MinSize: 44, MaxSize: 100 * mib, Folder: "audio"},
	{ID: "ogg", Magic: []byte("OggS"), Ext: ".ogg", Description: "Ogg Vorbis audio", MinSize: 58, MaxSize: 50 * mib, Folder: "audio", Probe: ProbeStream},
	{ID: "lip", Magic: []byte("LIPS"), Ext: ".lip", Description: "Lip-sync animation", MinSize: 20, MaxSize: 5 * mib},

	{ID: "script_scn", Magic: []byte("scn "), Ext: ".txt", Description: "Source script (scn header)", MinSize: 20, MaxSize: 100 * kib, Folder: "scripts", Probe: ProbeContent},
	{ID: "script_sn", Magic: []byte("ScriptName "), Ext: ".txt", Description: "Source script (ScriptName header)", MinSize: 20, MaxSize: 100 * kib, Folder: "scripts", Probe: ProbeContent},

	{ID: "esp", Magic: tes4Magic, Ext: ".esp", Description: "Game plugin", MinSize: 24, MaxSize: 500 * mib},
	{ID: "esm", Magic: tes4Magic, Ext: ".esm", Description: "Game master file", MinSize: 24, MaxSize: 500 * mib},
	{ID: "bsa", Magic: []byte("BSA\x00"), Ext: ".bsa", Description: "Game archive", MinSize: 36, MaxSize: 2 * gib},
	{ID: "sdt", Magic: []byte("SDAT"), Ext: ".sdt", Description: "Shader data", MinSize: 20, MaxSize: 10 * mib},
	{ID: "bik", Magic: []byte("BIKi"), Ext: ".bik", Description: "Bink video", MinSize: 20, MaxSize: 500 * mib},
	{ID: "tex", Magic: []byte("TEXI"), Ext: ".tex", Description: "Texture info", MinSize: 20, MaxSize: 1 * mib},

	{ID: "png", Magic: pngMagic, Ext: ".png", Description: "PNG image", MinSize: 67, MaxSize: 50 * mib, Folder: "images", Probe: ProbeStream},
	{ID: "jpeg", Magic: []byte{0xff, 0xd8, 0xff}, Ext: ".jpg", Description: "JPEG image", MinSize: 128, MaxSize: 50 * mib, Folder: "images", Probe: ProbeStream},

	{ID: "xex", Magic: []byte("XEX2"), Ext: ".xex", Description: "Console executable", MinSize: 24, MaxSize: 100 * mib},
	{ID: "xdbf", Magic: []byte("XDBF"), Ext: ".xdbf", Description: "Console dashboard data (achievements, title data)", MinSize: 24, MaxSize: 10 * mib},
	{ID: "xuis", Magic: []byte("XUIS"), Ext: ".xuis", Description: "Console UI scene", MinSize: 16, MaxSize: 10 * mib},
	{ID: "xuib", Magic: []byte("XUIB"), Ext: ".xuib", Description: "Console UI binary", MinSize: 16, MaxSize: 10 * mib},
	{ID: "pirs", Magic: []byte("PIRS"), Ext: ".pirs", Description: "Signed content package (PIRS)", MinSize: 0x200, MaxSize: 100 * mib, Folder: "packages"},
	{ID: "con", Magic: []byte("CON "), Ext: ".con", Description: "Content package (CON)", MinSize: 0x200, MaxSize: 100 * mib, Folder: "packages"},

	{ID: "zlib_default", Magic: []byte{0x78, 0x9c}, Ext: ".zlib", Description: "Zlib stream (default level)", MinSize: 10, MaxSize: 10 * mib, Probe: ProbeStream},
	{ID: "zlib_best", Magic: []byte{0x78, 0xda}, Ext: ".zlib", Description: "Zlib stream (best level)", MinSize: 10, MaxSize: 10 * mib, Probe: ProbeStream},
}

var byID = func() map[string]int {
	m := make(map[string]int, len(registry))
	for i, d := range registry {
		m[d.ID] = i
	}
	return m
}()

// All returns every descriptor in search order.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the descriptor registered under id.
func Lookup(id string) (Descriptor, bool) {
	i, ok := byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return registry[i], true
}

// IDs returns every registered identifier, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for _, d := range registry {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

// Select narrows the registry to the requested identifiers, keeping search
// order. An empty request selects everything.
func Select(ids []string) ([]Descriptor, error) {
	if len(ids) == 0 {
		return All(), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("unknown file type %q", id)
		}
		want[id] = true
	}
	var out []Descriptor
	for _, d := range registry {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}
