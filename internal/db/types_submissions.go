package db

import (
	"time"

	"github.com/google/uuid"
)

// Submission statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// IsValidStatus reports whether s is one of the submission statuses
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Defaults applied when a contributor leaves optional fields empty
const (
	DefaultAuthorSource    = "Unknown"
	DefaultPublicationDate = "01-01-1000"
)

// Submission represents one uploaded document and its review state
type Submission struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Subject         string     `json:"subject"`
	AuthorSource    string     `json:"author_source"`
	PublicationDate string     `json:"publication_date"`
	TextType        string     `json:"text_type"`
	PDFKey          string     `json:"pdf_key"`
	ExtractedText   string     `json:"extracted_text"`
	EditedText      string     `json:"edited_text"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	MergedAt        *time.Time `json:"merged_at,omitempty"`
}

// IsTerminal reports whether the submission has been decided
func (s *Submission) IsTerminal() bool {
	return s.Status == StatusAccepted || s.Status == StatusRejected
}

// SubmissionFilters holds optional filters for listing submissions
type SubmissionFilters struct {
	Status string // empty lists every status
	Search string // matched against subject, name and email
	Limit  int    // zero returns every match
	Offset int
}
