package carver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"memcarve/internal/oracle"
	"memcarve/internal/signature"
	"memcarve/pkg/fileutil"
)

const incompleteMarker = "_INCOMPLETE"

// commit turns an accepted verdict into a record, writing the file in carve
// mode. Candidates are committed one at a time in discovery order, which is
// what makes counters and generated names deterministic.
func (s *Session) commit(file io.ReaderAt, c candidate, updates chan<- ProgressUpdate) {
	d := c.desc
	if s.counts[d.ID] >= s.opts.MaxPerType {
		return
	}
	if c.err != nil {
		s.fail(updates, c.hit, c.err)
		return
	}

	var (
		rec  Record
		data []byte
		dir  string
		name string
	)
	switch v := c.verdict.(type) {
	case oracle.Reject:
		if v.Reason != "" {
			s.logger.Debug("candidate rejected", "type", d.ID, "offset", c.offset, "reason", v.Reason)
		}
		return
	case oracle.Size:
		body, ok, err := s.readSized(file, c.hit, v.Bytes)
		if err != nil {
			s.fail(updates, c.hit, err)
		}
		if !ok {
			return
		}
		data, dir = body, d.Dir()
		name = s.defaultName(d, extOr(v.Ext, d.Ext), c.offset)
	case oracle.SizeWithFlags:
		body, ok, err := s.readSized(file, c.hit, v.Bytes)
		if err != nil {
			s.fail(updates, c.hit, err)
		}
		if !ok {
			return
		}
		data, dir = body, d.Dir()
		ext := extOr(v.Ext, d.Ext)
		if v.Name != "" && isScript(d) {
			name = scriptName(v.Name, v.Complete, ext)
		} else {
			name = s.defaultName(d, ext, c.offset)
		}
	case oracle.DecompressedStream:
		data, dir = v.Data, "stream_"+v.ContentType
		name = s.streamName(d, v, c.offset)
		rec.SizeInDump = v.CompressedSize
		rec.IsCompressed = true
		rec.ContentType = v.ContentType
	default:
		return
	}

	rel, ok, err := s.place(dir, name, data, c.offset)
	if err != nil {
		s.fail(updates, c.hit, err)
		return
	}
	if !ok {
		s.summary.Duplicates++
		s.logger.Debug("skipped duplicate", "type", d.ID, "offset", c.offset, "file", filepath.Join(dir, name))
		return
	}

	rec.FormatIdentifier = d.ID
	rec.Offset = c.offset
	rec.SizeOutput = int64(len(data))
	if !rec.IsCompressed {
		rec.SizeInDump = rec.SizeOutput
	}
	rec.Filename = rel
	s.records = append(s.records, rec)
	s.counts[d.ID]++

	s.logger.Debug("carved file", "type", d.ID, "offset", c.offset, "file", rel, "size", rec.SizeOutput)
	s.emit(updates, ProgressUpdate{CarvedDelta: 1, BytesWrittenDelta: rec.SizeOutput})
}

// readSized bounds-checks an oracle size and reads exactly that many bytes.
// A capture that ends early yields what is there, provided it still meets
// the minimum size. ok is false when the candidate is discarded.
func (s *Session) readSized(file io.ReaderAt, h hit, size int64) ([]byte, bool, error) {
	d := h.desc
	if size < d.MinSize || size > d.MaxSize || size <= 0 {
		s.logger.Debug("size out of range", "type", d.ID, "offset", h.offset, "size", size)
		return nil, false, nil
	}
	// Oracle sizes come from untrusted length fields; never allocate past
	// the end of the capture.
	data := make([]byte, min(size, max(0, s.captureSize-h.offset)))
	n, err := file.ReadAt(data, h.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("read candidate: %w", err)
	}
	if int64(n) < d.MinSize || n == 0 {
		return nil, false, nil
	}
	return data[:n], true, nil
}

func (s *Session) fail(updates chan<- ProgressUpdate, h hit, err error) {
	s.summary.Errors++
	s.logger.Warn("candidate failed", "type", h.desc.ID, "offset", h.offset, "error", err)
	s.emit(updates, ProgressUpdate{ErrorDelta: 1})
}

func extOr(ext, fallback string) string {
	if ext != "" {
		return ext
	}
	return fallback
}

func isScript(d signature.Descriptor) bool {
	return d.Probe == signature.ProbeContent
}

func (s *Session) defaultName(d signature.Descriptor, ext string, offset int64) string {
	return fmt.Sprintf("%s_%04d_off_%08X%s", d.ID, s.counts[d.ID], offset, ext)
}

func scriptName(name string, complete bool, ext string) string {
	if !complete {
		return name + incompleteMarker + ext
	}
	return name + ext
}

func (s *Session) streamName(d signature.Descriptor, v oracle.DecompressedStream, offset int64) string {
	if v.NameHint != "" {
		return fmt.Sprintf("%s_%04d%s", v.NameHint, s.counts[d.ID], v.Ext)
	}
	return fmt.Sprintf("%s_%04d_off_%08X%s", v.ContentType, s.counts[d.ID], offset, v.Ext)
}

func withOffset(name string, offset int64) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_off_%08X%s", strings.TrimSuffix(name, ext), offset, ext)
}

// place settles the output name for data. A name already claimed in this
// session with identical content is a re-found duplicate (ok=false). A file
// left on disk by an earlier run with identical content is adopted without
// rewriting. Any other collision moves the candidate to an offset-suffixed
// name.
func (s *Session) place(dir, name string, data []byte, offset int64) (rel string, ok bool, err error) {
	sum := blake3.Sum256(data)
	names := []string{name, withOffset(name, offset)}

	for i, n := range names {
		last := i == len(names)-1
		rel = filepath.ToSlash(filepath.Join(dir, n))
		path := filepath.Join(s.opts.OutputDir, dir, n)

		if prev, claimed := s.claimed[path]; claimed {
			if prev == sum {
				return "", false, nil
			}
			if last {
				return "", false, fmt.Errorf("%s already holds different content", rel)
			}
			continue
		}

		if s.opts.Mode == ModeCarve {
			exists, same, err := matchesFile(path, sum, int64(len(data)))
			if err != nil {
				return "", false, err
			}
			switch {
			case same:
			case exists && !last:
				continue
			default:
				if err := writeFile(path, data); err != nil {
					return "", false, err
				}
			}
		}
		s.claimed[path] = sum
		return rel, true, nil
	}
	return "", false, nil
}

// matchesFile reports whether path exists and whether its content hashes to
// sum. The file is streamed through the hasher rather than read whole.
func matchesFile(path string, sum [32]byte, size int64) (exists, same bool, err error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if !info.Mode().IsRegular() || info.Size() != size {
		return true, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return true, false, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return true, false, err
	}
	var got [32]byte
	copy(got[:], h.Sum(nil))
	return true, got == sum, nil
}

func writeFile(path string, data []byte) error {
	return fileutil.WriteAtomic(path, "carve-*.tmp", func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
