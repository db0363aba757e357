package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
)

// ErrEmailAlreadyExists indicates the email already belongs to a reviewer
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrReviewerNotFound indicates the reviewer was not found
type ErrReviewerNotFound struct {
	ID uuid.UUID
}

func (e *ErrReviewerNotFound) Error() string {
	return fmt.Sprintf("reviewer not found: %s", e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the HTTP status code for an error, looking through wrapping.
func HTTPStatus(err error) int {
	var (
		emailExists   *ErrEmailAlreadyExists
		badCreds      *ErrInvalidCredentials
		reviewerMiss  *ErrReviewerNotFound
		validation    *ErrValidation
		subMiss       *lifecycle.ErrSubmissionNotFound
		transition    *lifecycle.ErrInvalidTransition
		merged        *lifecycle.ErrAlreadyMerged
		subValidation *lifecycle.ErrValidation
		mergeErr      *corpus.MergeError
		entryErr      *corpus.InvalidEntryError
	)
	switch {
	case errors.As(err, &emailExists), errors.As(err, &transition), errors.As(err, &merged),
		errors.Is(err, corpus.ErrReconciliationStale):
		return http.StatusConflict
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized
	case errors.As(err, &reviewerMiss), errors.As(err, &subMiss):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &subValidation):
		return http.StatusBadRequest
	case errors.As(err, &entryErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &mergeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error details behind a generic message for 5xx responses.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
