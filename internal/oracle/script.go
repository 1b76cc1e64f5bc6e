package oracle

import (
	"bytes"
	"strings"
)

const (
	scriptMinProbe = 10
	scriptMinBody  = 5
	scriptMinSize  = 10
)

// Any of these starting a later line marks the start of the next script.
var scriptHeaders = [][]byte{
	[]byte("scn "), []byte("Scn "), []byte("SCN "),
	[]byte("ScriptName "), []byte("scriptname "), []byte("SCRIPTNAME "),
}

// Script recovers a source script, which carries no length field. The
// script ends at the earlier of the next script header (backed up to the
// newline before it) and the first byte that cannot appear in script text.
// The result is flagged complete only when an "end" keyword is found.
func Script(data []byte, lim Limits) Verdict {
	if len(data) < scriptMinProbe {
		return Reject{}
	}
	if lim.Max > 0 && int64(len(data)) > lim.Max {
		data = data[:lim.Max]
	}

	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd < 0 {
		return Reject{}
	}
	name, ok := scriptName(asciiOnly(data[:lineEnd]))
	if !ok {
		return Reject{}
	}

	body := data[lineEnd+1:]
	if len(body) < scriptMinBody || bytes.IndexByte(body, '\n') < 0 {
		return Reject{}
	}

	end := scriptEnd(data, lineEnd)
	if end < scriptMinSize {
		return Reject{}
	}

	return SizeWithFlags{
		Bytes:    int64(end),
		Name:     name,
		Complete: hasEndKeyword(data[:end]),
	}
}

func asciiOnly(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}

// scriptName pulls the identifier from a "scn Name" or "ScriptName Name"
// header line. Only letters, digits and underscores are accepted.
func scriptName(line string) (string, bool) {
	lower := strings.ToLower(line)
	var rest string
	switch {
	case strings.HasPrefix(lower, "scn "):
		rest = line[len("scn "):]
	case strings.HasPrefix(lower, "scriptname "):
		rest = line[len("scriptname "):]
	default:
		return "", false
	}

	rest = strings.TrimSpace(rest)
	if i := strings.IndexAny(rest, "; \t\r"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	for _, r := range rest {
		if !(r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')) {
			return "", false
		}
	}
	return rest, true
}

func scriptEnd(data []byte, lineEnd int) int {
	end := len(data)
	from := lineEnd + 1

	for _, hdr := range scriptHeaders {
		next := bytes.Index(data[from:], hdr)
		if next < 0 {
			continue
		}
		next += from
		if nl := bytes.LastIndexByte(data[:next], '\n'); nl >= 0 {
			end = min(end, nl)
		} else {
			end = min(end, next)
		}
	}

	for i := 0; i < end; i++ {
		c := data[i]
		if c == 0 || (c < 0x20 && c != '\t' && c != '\n' && c != '\r') || c > 0x7e {
			end = i
			break
		}
	}

	for end > 0 {
		switch data[end-1] {
		case '\t', '\n', '\r', ' ':
			end--
			continue
		}
		break
	}
	return end
}

// hasEndKeyword reports whether "end" opens any line or is the last token.
func hasEndKeyword(text []byte) bool {
	lower := strings.ToLower(string(text))
	for _, line := range strings.Split(lower, "\n") {
		if firstToken(line) == "end" {
			return true
		}
	}
	fields := strings.Fields(lower)
	return len(fields) > 0 && fields[len(fields)-1] == "end"
}

func firstToken(line string) string {
	line = strings.TrimLeft(line, " \t\r")
	if i := strings.IndexAny(line, " \t\r;"); i >= 0 {
		return line[:i]
	}
	return line
}
