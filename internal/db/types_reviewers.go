package db

import (
	"time"

	"github.com/google/uuid"
)

// Reviewer is a panel user allowed to edit and decide submissions
type Reviewer struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
