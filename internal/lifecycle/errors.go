package lifecycle

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrSubmissionNotFound indicates the submission does not exist
type ErrSubmissionNotFound struct {
	ID uuid.UUID
}

func (e *ErrSubmissionNotFound) Error() string {
	return fmt.Sprintf("submission not found: %s", e.ID)
}

// ErrInvalidTransition indicates an action that the submission's status does not permit
type ErrInvalidTransition struct {
	ID   uuid.UUID
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("submission %s cannot move from %s to %s", e.ID, e.From, e.To)
}

// ErrValidation indicates invalid input
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrAlreadyMerged indicates the submission's text is already part of the corpus
type ErrAlreadyMerged struct {
	ID uuid.UUID
}

func (e *ErrAlreadyMerged) Error() string {
	return fmt.Sprintf("submission already merged into the corpus: %s", e.ID)
}
