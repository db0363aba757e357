// Package types provides request and response shapes shared by the HTTP API and the CLI.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// CreateReviewerRequest represents the request to create a reviewer account.
type CreateReviewerRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the reviewer login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Reviewer is a reviewer profile for API responses (avoids import cycle with db package).
type Reviewer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the reviewer profile and its bearer token.
type LoginResponse struct {
	Reviewer *Reviewer `json:"reviewer"`
	Token    string    `json:"token"`
}

// Validate validates the CreateReviewerRequest.
func (r *CreateReviewerRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the LoginRequest.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}
