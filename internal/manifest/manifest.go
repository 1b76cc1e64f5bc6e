// Package manifest is the record of what a carve recovered. Its JSON form is
// the contract with string-exclusion and reporting consumers, so field names
// are fixed.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"memcarve/pkg/fileutil"
)

// FileName is the manifest's name inside a carve's output root.
const FileName = "carve_manifest.json"

// Entry describes one recovered file.
type Entry struct {
	FormatIdentifier string `json:"format_identifier"`
	Offset           int64  `json:"offset"`
	SizeInDump       int64  `json:"size_in_dump"`
	SizeOutput       int64  `json:"size_output"`
	Filename         string `json:"filename"`
	IsCompressed     bool   `json:"is_compressed"`
	ContentType      string `json:"content_type"`
}

// TypeStats aggregates the entries of one format identifier.
type TypeStats struct {
	Count       int   `json:"count"`
	BytesInDump int64 `json:"bytes_in_dump"`
	BytesOutput int64 `json:"bytes_output"`
}

type Summary struct {
	TotalFiles       int                  `json:"total_files"`
	TotalBytesInDump int64                `json:"total_bytes_in_dump"`
	TotalBytesOutput int64                `json:"total_bytes_output"`
	ByType           map[string]TypeStats `json:"by_type"`
}

type Manifest struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Build wraps entries with their summary.
func Build(entries []Entry) Manifest {
	if entries == nil {
		entries = []Entry{}
	}
	return Manifest{Entries: entries, Summary: Summarize(entries)}
}

// Summarize totals entries overall and per format identifier.
func Summarize(entries []Entry) Summary {
	s := Summary{ByType: make(map[string]TypeStats)}
	for _, e := range entries {
		s.TotalFiles++
		s.TotalBytesInDump += e.SizeInDump
		s.TotalBytesOutput += e.SizeOutput

		ts := s.ByType[e.FormatIdentifier]
		ts.Count++
		ts.BytesInDump += e.SizeInDump
		ts.BytesOutput += e.SizeOutput
		s.ByType[e.FormatIdentifier] = ts
	}
	return s
}

// Types returns the identifiers present in the summary, sorted.
func (s Summary) Types() []string {
	ids := make([]string, 0, len(s.ByType))
	for id := range s.ByType {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save writes m to path. The file is written beside path and renamed over
// it, so a reader never sees a partial manifest.
func Save(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return fileutil.WriteAtomic(path, "manifest-*.tmp", func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Load reads a manifest written by Save.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if m.Summary.ByType == nil {
		m.Summary.ByType = make(map[string]TypeStats)
	}
	return m, nil
}
