package carver

import (
	"errors"
	"log/slog"

	"memcarve/internal/manifest"
)

type Mode int

const (
	// ModeCarve writes recovered files and the manifest.
	ModeCarve Mode = iota
	// ModeScan computes every verdict and name but writes nothing.
	ModeScan
)

const (
	DefaultWindowSize = 10 << 20
	DefaultOverlap    = 2048
	DefaultMaxPerType = 10000
)

// ErrInvalidOptions is returned for option values no scan can run with.
var ErrInvalidOptions = errors.New("invalid carve options")

type Options struct {
	Mode Mode
	// Types restricts the scan to these format identifiers; empty means all.
	Types      []string
	WindowSize int64
	Overlap    int64
	MaxPerType int
	// Workers bounds concurrent oracle evaluation within a window; zero or
	// less means one per CPU.
	Workers   int
	OutputDir string
	Logger    *slog.Logger
}

// DefaultOptions returns options for a full carve into outputDir.
func DefaultOptions(outputDir string) Options {
	return Options{
		Mode:       ModeCarve,
		WindowSize: DefaultWindowSize,
		Overlap:    DefaultOverlap,
		MaxPerType: DefaultMaxPerType,
		Workers:    1,
		OutputDir:  outputDir,
	}
}

// Record is one recovered candidate as it appears in the manifest.
type Record = manifest.Entry

type Summary struct {
	CaptureBytes int64
	Files        int
	BytesInDump  int64
	BytesOutput  int64
	Duplicates   int
	Errors       int
	ByType       map[string]manifest.TypeStats
	// ManifestPath is empty when nothing was persisted.
	ManifestPath string
}

type ProgressUpdate struct {
	TotalBytes        int64
	ScannedDelta      int64
	CarvedDelta       int
	BytesWrittenDelta int64
	ErrorDelta        int
}
