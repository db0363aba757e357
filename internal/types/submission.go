package types

// CreateSubmissionRequest holds the text fields of a contributor upload form.
// The PDF travels as the pdf_file multipart part.
type CreateSubmissionRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email,max=320"`
	Subject         string `json:"subject" validate:"required,max=500"`
	AuthorSource    string `json:"author_source" validate:"max=500"`
	PublicationDate string `json:"publication_date" validate:"max=50"`
	TextType        string `json:"text_type" validate:"max=50"`
}

// DecisionRequest is a reviewer's accept or reject action with optional final text.
// A nil EditedText keeps the stored edit.
type DecisionRequest struct {
	Action     string  `json:"action" validate:"required,oneof=accept reject"`
	EditedText *string `json:"edited_text,omitempty"`
}

// EditTextRequest replaces the edited text of a submission.
type EditTextRequest struct {
	EditedText string `json:"edited_text"`
}

// MergeResponse reports the outcome of a corpus merge after a decision.
type MergeResponse struct {
	Merged    bool   `json:"merged"`
	CharCount int    `json:"char_count,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Validate validates the CreateSubmissionRequest.
func (r *CreateSubmissionRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the DecisionRequest.
func (r *DecisionRequest) Validate() error {
	return validate.Struct(r)
}
