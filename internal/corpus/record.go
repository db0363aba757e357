package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/happyhackingspace/kurdish-dataset/internal/schemas"
)

// CreatedAtLayout is the date-only layout of Record.CreatedAt.
const CreatedAtLayout = "2006-01-02"

// Record is one line of the corpus metadata file.
type Record struct {
	DocumentSubject string `json:"document_subject"`
	TextType        string `json:"text_type"`
	AuthorSource    string `json:"author_source"`
	PublicationDate string `json:"publication_date"`
	CreatedAt       string `json:"created_at"`
	CharCount       int    `json:"char_count"`
	WordCount       int    `json:"word_count"`
	Text            string `json:"text"`
}

// MarshalLine renders the record the way the dataset has always been written:
// fixed key order, ", " and ": " separators, non-ASCII kept verbatim, no trailing newline.
func (r Record) MarshalLine() (string, error) {
	fields := []struct {
		key   string
		value any
	}{
		{"document_subject", r.DocumentSubject},
		{"text_type", r.TextType},
		{"author_source", r.AuthorSource},
		{"publication_date", r.PublicationDate},
		{"created_at", r.CreatedAt},
		{"char_count", r.CharCount},
		{"word_count", r.WordCount},
		{"text", r.Text},
	}

	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		key, err := encodeValue(f.key)
		if err != nil {
			return "", err
		}
		val, err := encodeValue(f.value)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", f.key, err)
		}
		sb.Write(key)
		sb.WriteString(": ")
		sb.Write(val)
	}
	sb.WriteByte('}')

	line := sb.String()
	if err := schemas.ValidateCorpusRecord([]byte(line)); err != nil {
		return "", fmt.Errorf("record failed schema check: %w", err)
	}
	return line, nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseRecord validates one metadata line against the record schema and decodes it.
func ParseRecord(line []byte) (Record, error) {
	var rec Record
	if err := schemas.ValidateCorpusRecord(line); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// LineError describes a metadata line that did not pass validation.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// DecodeMetadata parses a whole metadata file. Valid records are returned in file order;
// invalid lines are reported individually and do not stop decoding.
func DecodeMetadata(data []byte) ([]Record, []LineError) {
	var (
		records []Record
		errs    []LineError
	)
	for i, line := range SplitMetadata(data) {
		rec, err := ParseRecord([]byte(line))
		if err != nil {
			errs = append(errs, LineError{Line: i + 1, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}
