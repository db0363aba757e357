// Package observability provides logging, metrics and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// printBanner prints a single-line box
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBanner(text string) {
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %s │\n", pad(text))
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}

// pad truncates or right-pads s to the inner box width, counting runes
func pad(s string) string {
	width := boxWidth - 4
	if utf8.RuneCountInString(s) > width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// PrintCorpusSummary outputs record and text statistics of the corpus artifacts.
func (p *Printer) PrintCorpusSummary(repoID string, s *corpus.Summary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Repository:    %s\n", repoID))
	sb.WriteString(fmt.Sprintf("Records:       %d\n", s.Records))
	sb.WriteString(fmt.Sprintf("Text entries:  %d\n", s.TextEntries))
	sb.WriteString(fmt.Sprintf("Characters:    %d\n", s.Chars))
	sb.WriteString(fmt.Sprintf("Words:         %d\n", s.Words))

	if len(s.TextTypes) > 0 {
		sb.WriteString("\nText types:\n")
		count := min(len(s.TextTypes), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", s.TextTypes[i].Label, s.TextTypes[i].Count))
		}
		if len(s.TextTypes) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.TextTypes)-maxItemsToShow))
		}
	}

	if len(s.InvalidLines) > 0 {
		sb.WriteString(fmt.Sprintf("\nInvalid lines: %d\n", len(s.InvalidLines)))
		count := min(len(s.InvalidLines), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", s.InvalidLines[i].Error()))
		}
		if len(s.InvalidLines) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.InvalidLines)-maxItemsToShow))
		}
	}

	if s.Records != s.TextEntries {
		sb.WriteString(fmt.Sprintf("\n⚠ %d records but %d text entries\n", s.Records, s.TextEntries))
	}

	p.printBox("CORPUS SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReconciliations outputs the open reconciliations awaiting a resume.
func (p *Printer) PrintReconciliations(recs []corpus.Reconciliation) {
	if len(recs) == 0 {
		p.printBanner("✅ NO OPEN RECONCILIATIONS")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Open reconciliations: %d\n\n", len(recs)))
	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("%s\n", r.ID))
		sb.WriteString(fmt.Sprintf("  submission: %s\n", r.SubmissionID))
		sb.WriteString(fmt.Sprintf("  written:    metadata %s  text %s\n", mark(r.MetadataWritten), mark(r.TextWritten)))
		sb.WriteString(fmt.Sprintf("  attempts:   %d (last %s)\n", r.Attempts, r.UpdatedAt.Format(time.RFC3339)))
		if r.LastError != "" {
			sb.WriteString(fmt.Sprintf("  error:      %s\n", r.LastError))
		}
		if i < len(recs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("MERGE RECONCILIATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResumeResult outputs how many reconciliations were resolved by a resume run.
func (p *Printer) PrintResumeResult(resolved int, failures []string) {
	if len(failures) == 0 {
		p.printBanner(fmt.Sprintf("✅ RESOLVED %d RECONCILIATIONS", resolved))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Resolved: %d\n", resolved))
	sb.WriteString(fmt.Sprintf("Failed:   %d\n\n", len(failures)))
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", f))
	}
	p.printBox("RECONCILIATION RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExtraction outputs statistics for an extracted document.
func (p *Printer) PrintExtraction(file string, text string, placeholder bool) {
	counts := corpus.Count(text)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:        %s\n", file))
	sb.WriteString(fmt.Sprintf("Characters:  %d\n", counts.Chars))
	sb.WriteString(fmt.Sprintf("Words:       %d\n", counts.Words))
	sb.WriteString(fmt.Sprintf("Lines:       %d", strings.Count(text, "\n")+1))
	if placeholder {
		sb.WriteString("\n\n⚠ no text extracted, placeholder used")
	}
	p.printBox("PDF EXTRACTION", sb.String())
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
