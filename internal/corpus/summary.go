package corpus

import "sort"

// Summary describes the current state of both artifacts.
type Summary struct {
	Records      int
	InvalidLines []LineError
	Chars        int
	Words        int
	TextEntries  int
	TextTypes    []TypeCount
}

// TypeCount is the number of records carrying one text type label.
type TypeCount struct {
	Label string
	Count int
}

// Summarize decodes the metadata file and counts the entries of the text blob.
func Summarize(metadata, text []byte) *Summary {
	records, bad := DecodeMetadata(metadata)
	s := &Summary{
		Records:      len(records),
		InvalidLines: bad,
		TextEntries:  len(TextEntries(text)),
	}

	byType := make(map[string]int)
	for _, r := range records {
		s.Chars += r.CharCount
		s.Words += r.WordCount
		byType[r.TextType]++
	}
	for label, n := range byType {
		s.TextTypes = append(s.TextTypes, TypeCount{Label: label, Count: n})
	}
	sort.Slice(s.TextTypes, func(i, j int) bool {
		if s.TextTypes[i].Count != s.TextTypes[j].Count {
			return s.TextTypes[i].Count > s.TextTypes[j].Count
		}
		return s.TextTypes[i].Label < s.TextTypes[j].Label
	})
	return s
}

// Consistent reports whether every metadata line is valid and each record has a text entry.
func (s *Summary) Consistent() bool {
	return len(s.InvalidLines) == 0 && s.Records == s.TextEntries
}
