package corpus

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SplitMetadata returns the non-blank lines of a metadata file, unmodified.
// A file that still holds the original JSON-array seed is converted to one record per line.
func SplitMetadata(data []byte) []string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		if lines, ok := splitLegacyArray(trimmed); ok {
			return lines
		}
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitLegacyArray(data []byte) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal(item, &rec); err == nil {
			if line, err := rec.MarshalLine(); err == nil {
				lines = append(lines, line)
				continue
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, item); err != nil {
			return nil, false
		}
		lines = append(lines, compact.String())
	}
	return lines, true
}

// AppendMetadata returns the metadata file with line added as its last record.
func AppendMetadata(existing []byte, line string) []byte {
	lines := append(SplitMetadata(existing), line)
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// AppendText returns the text blob with entry appended after exactly one blank line.
// Existing bytes are never rewritten; whitespace-only content counts as empty.
func AppendText(existing []byte, entry string) []byte {
	if len(bytes.TrimSpace(existing)) == 0 {
		return []byte(entry)
	}
	var sep string
	switch {
	case bytes.HasSuffix(existing, []byte("\n\n")):
		sep = ""
	case bytes.HasSuffix(existing, []byte("\n")):
		sep = "\n"
	default:
		sep = "\n\n"
	}
	out := make([]byte, 0, len(existing)+len(sep)+len(entry))
	out = append(out, existing...)
	out = append(out, sep...)
	out = append(out, entry...)
	return out
}

// TextEntries splits a text blob into its blank-line separated entries.
func TextEntries(blob []byte) []string {
	var entries []string
	for _, part := range strings.Split(string(blob), "\n\n") {
		if strings.TrimSpace(part) != "" {
			entries = append(entries, part)
		}
	}
	return entries
}
