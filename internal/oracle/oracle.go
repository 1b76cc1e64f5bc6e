// Package oracle decides, for a candidate hit in a capture, whether the bytes
// are a real instance of a format and how long that instance is.
//
// Every oracle is a pure function of the probe buffer it is handed. Oracles
// never read past the end of that buffer and never fail: malformed input is
// a Reject verdict.
package oracle

// Limits are the size bounds of the descriptor being searched.
type Limits struct {
	Min int64
	Max int64
}

// Verdict is one of Reject, Size, SizeWithFlags or DecompressedStream.
type Verdict interface {
	verdict()
}

// Reject discards the candidate. Reason is set when a structurally valid
// candidate was refused by a limit rather than by its bytes.
type Reject struct {
	Reason string
}

// Size reports the byte length of the candidate. Ext, when set, replaces the
// descriptor's extension.
type Size struct {
	Bytes int64
	Ext   string
	Class string
}

// SizeWithFlags reports a length along with what the oracle learned about the
// candidate's byte order, name and completeness.
type SizeWithFlags struct {
	Bytes     int64
	BigEndian bool
	Name      string
	Complete  bool
	Ext       string
	Class     string
}

// DecompressedStream carries an already inflated payload. Its sizes are
// authoritative and are not checked against descriptor bounds.
type DecompressedStream struct {
	ContentType    string
	Ext            string
	CompressedSize int64
	Data           []byte
	NameHint       string
}

func (Reject) verdict()             {}
func (Size) verdict()               {}
func (SizeWithFlags) verdict()      {}
func (DecompressedStream) verdict() {}

// Func is the signature shared by every oracle.
type Func func(data []byte, lim Limits) Verdict

var table = map[string]Func{
	"dds":          DDS,
	"ddx_3xdo":     DDX,
	"ddx_3xdr":     DDX,
	"nif":          Gamebryo,
	"kf":           Gamebryo,
	"egm":          Gamebryo,
	"egt":          Gamebryo,
	"xma":          RIFF,
	"ogg":          Ogg,
	"lip":          LIP,
	"script_scn":   Script,
	"script_sn":    Script,
	"esp":          GameData,
	"esm":          GameData,
	"bsa":          GameData,
	"bik":          BIK,
	"png":          PNG,
	"jpeg":         JPEG,
	"xex":          XEX,
	"xdbf":         XDBF,
	"xuis":         XUI,
	"xuib":         XUI,
	"pirs":         STFS,
	"con":          STFS,
	"zlib_default": Zlib,
	"zlib_best":    Zlib,
}

// For returns the oracle registered for a format identifier. Formats without
// a dedicated oracle get Fallback.
func For(id string) Func {
	if fn, ok := table[id]; ok {
		return fn
	}
	return Fallback
}

// Evaluate runs the oracle for id over data.
func Evaluate(id string, data []byte, lim Limits) Verdict {
	return For(id)(data, lim)
}

// Fallback is used for formats whose length cannot be derived from content:
// it claims the descriptor minimum, or 1 KiB when no minimum is set.
func Fallback(data []byte, lim Limits) Verdict {
	if lim.Min > 0 {
		return Size{Bytes: lim.Min}
	}
	return Size{Bytes: 1024}
}

func clampMax(n int64, lim Limits) int64 {
	if lim.Max > 0 && n > lim.Max {
		return lim.Max
	}
	return n
}
