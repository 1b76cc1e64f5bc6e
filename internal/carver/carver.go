// Package carver scans a memory capture window by window for format
// signatures and recovers every candidate its oracle accepts.
package carver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"memcarve/internal/manifest"
	"memcarve/internal/oracle"
	"memcarve/internal/signature"
)

// Session owns the counters and records of one capture scan. A session may
// scan several captures in turn but must not run two scans at once.
type Session struct {
	opts   Options
	descs  []signature.Descriptor
	logger *slog.Logger

	counts      map[string]int
	records     []Record
	claimed     map[string][32]byte
	summary     Summary
	captureSize int64
}

// NewSession validates opts and prepares a session.
func NewSession(opts Options) (*Session, error) {
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive", ErrInvalidOptions)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.WindowSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, window size)", ErrInvalidOptions)
	}
	if opts.MaxPerType <= 0 {
		return nil, fmt.Errorf("%w: per-type cap must be positive", ErrInvalidOptions)
	}
	if opts.Mode == ModeCarve && opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory required", ErrInvalidOptions)
	}
	descs, err := signature.Select(opts.Types)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{opts: opts, descs: descs, logger: logger}, nil
}

// Run scans one capture with a fresh session.
func Run(ctx context.Context, capturePath string, opts Options, updates chan<- ProgressUpdate) (Summary, []Record, error) {
	s, err := NewSession(opts)
	if err != nil {
		return Summary{}, nil, err
	}
	summary, err := s.Scan(ctx, capturePath, updates)
	return summary, s.Records(), err
}

// Counts returns the number of files recovered per format identifier.
func (s *Session) Counts() map[string]int {
	return maps.Clone(s.counts)
}

// Records returns the recovered records in discovery order.
func (s *Session) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) reset() {
	s.counts = make(map[string]int, len(s.descs))
	s.records = nil
	s.claimed = make(map[string][32]byte)
	s.summary = Summary{}
}

// Scan carves capturePath. Failing to open or read the capture is fatal;
// anything that goes wrong with a single candidate is logged and skipped.
// Cancellation is honoured between windows, and the manifest of what was
// recovered so far is still saved.
func (s *Session) Scan(ctx context.Context, capturePath string, updates chan<- ProgressUpdate) (Summary, error) {
	s.reset()

	file, err := os.Open(capturePath)
	if err != nil {
		return s.summary, fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return s.summary, fmt.Errorf("stat capture: %w", err)
	}
	total := info.Size()
	s.captureSize = total
	s.summary.CaptureBytes = total
	s.emit(updates, ProgressUpdate{TotalBytes: total})

	if s.opts.Mode == ModeCarve {
		if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
			return s.summary, err
		}
	}

	s.logger.Info("scanning capture",
		"path", capturePath,
		"size", humanize.IBytes(uint64(total)),
		"types", len(s.descs),
		"window", humanize.IBytes(uint64(s.opts.WindowSize)))

	buf := make([]byte, 0, s.opts.WindowSize+2*s.opts.Overlap)
	for start := int64(0); start < total; start += s.opts.WindowSize {
		if err := ctx.Err(); err != nil {
			return s.finish(err)
		}

		readStart := max(0, start-s.opts.Overlap)
		readEnd := min(total, start+s.opts.WindowSize+s.opts.Overlap)
		buf = buf[:readEnd-readStart]
		if n, err := file.ReadAt(buf, readStart); n < len(buf) {
			return s.summary, fmt.Errorf("read capture at 0x%08X: %w", readStart, err)
		}

		w := window{
			data:     buf,
			base:     readStart,
			lead:     start - readStart,
			ownedEnd: min(start+s.opts.WindowSize, total) - readStart,
		}
		ordered(s.search(w), s.opts.Workers,
			func(h hit) candidate { return evaluate(file, h) },
			func(_ hit, c candidate) { s.commit(file, c, updates) })
		s.emit(updates, ProgressUpdate{ScannedDelta: w.ownedEnd - w.lead})
	}

	return s.finish(nil)
}

// finish totals the scan, persists the manifest in carve mode and logs the
// per-type statistics. cause is returned unchanged.
func (s *Session) finish(cause error) (Summary, error) {
	sum := manifest.Summarize(s.records)
	s.summary.Files = sum.TotalFiles
	s.summary.BytesInDump = sum.TotalBytesInDump
	s.summary.BytesOutput = sum.TotalBytesOutput
	s.summary.ByType = sum.ByType

	if s.opts.Mode == ModeCarve {
		path := filepath.Join(s.opts.OutputDir, manifest.FileName)
		if err := manifest.Save(path, manifest.Build(s.Records())); err != nil {
			return s.summary, errors.Join(cause, fmt.Errorf("save manifest: %w", err))
		}
		s.summary.ManifestPath = path
	}

	for _, id := range sum.Types() {
		ts := sum.ByType[id]
		s.logger.Info("carved",
			"type", id,
			"count", ts.Count,
			"in_dump", humanize.IBytes(uint64(ts.BytesInDump)),
			"output", humanize.IBytes(uint64(ts.BytesOutput)))
	}
	return s.summary, cause
}

// window is one buffered read of the capture. Hits are owned by the window
// when their buffer position lies in [lead, ownedEnd); the bytes outside
// that range are overlap shared with the neighbouring windows.
type window struct {
	data     []byte
	base     int64
	lead     int64
	ownedEnd int64
}

type hit struct {
	desc   signature.Descriptor
	offset int64
}

// search finds every non-overlapping magic occurrence owned by w, grouped
// by descriptor in registry order and by offset within a descriptor.
func (s *Session) search(w window) []hit {
	var hits []hit
	for _, d := range s.descs {
		if s.counts[d.ID] >= s.opts.MaxPerType {
			continue
		}
		for cursor := 0; cursor < len(w.data); {
			i := bytes.Index(w.data[cursor:], d.Magic)
			if i < 0 {
				break
			}
			pos := cursor + i
			cursor = pos + len(d.Magic)
			if int64(pos) < w.lead {
				continue
			}
			if int64(pos) >= w.ownedEnd {
				break
			}
			hits = append(hits, hit{desc: d, offset: w.base + int64(pos)})
		}
	}
	return hits
}

type candidate struct {
	hit
	verdict oracle.Verdict
	err     error
}

// ordered evaluates items on up to workers goroutines and hands each result
// to commit in item order, on the calling goroutine. At most workers results
// are alive at once, so a candidate's payload is released as soon as it has
// been committed.
func ordered[T, R any](items []T, workers int, eval func(T) R, commit func(T, R)) {
	if workers <= 1 {
		for _, it := range items {
			commit(it, eval(it))
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	pending := make([]chan R, 0, workers)
	next := 0
	for _, it := range items {
		if len(pending) == workers {
			commit(items[next], <-pending[0])
			pending = pending[1:]
			next++
		}
		result := make(chan R, 1)
		pending = append(pending, result)
		g.Go(func() error {
			result <- eval(it)
			return nil
		})
	}
	for _, result := range pending {
		commit(items[next], <-result)
		next++
	}
	_ = g.Wait()
}

func evaluate(file io.ReaderAt, h hit) candidate {
	c := candidate{hit: h}
	probe := make([]byte, h.desc.ProbeSize())
	n, err := file.ReadAt(probe, h.offset)
	if n == 0 && err != nil {
		c.err = fmt.Errorf("read probe: %w", err)
		return c
	}
	c.verdict = oracle.Evaluate(h.desc.ID, probe[:n], oracle.Limits{Min: h.desc.MinSize, Max: h.desc.MaxSize})
	return c
}

func (s *Session) emit(updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates != nil {
		updates <- u
	}
}
