package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

// ReviewerStore is the subset of the record store used for reviewer accounts.
type ReviewerStore interface {
	CreateReviewer(ctx context.Context, name, email, passwordHash string) (*db.Reviewer, error)
	GetReviewer(ctx context.Context, id uuid.UUID) (*db.Reviewer, error)
	GetReviewerByEmail(ctx context.Context, email string) (*db.Reviewer, error)
}

// ReviewerService provides reviewer account operations.
type ReviewerService struct {
	store          ReviewerStore
	passwordConfig *config.PasswordConfig
}

// NewReviewerService creates a ReviewerService.
func NewReviewerService(store ReviewerStore, passwordConfig *config.PasswordConfig) *ReviewerService {
	return &ReviewerService{store: store, passwordConfig: passwordConfig}
}

func toTypesReviewer(r *db.Reviewer) *types.Reviewer {
	if r == nil {
		return nil
	}
	return &types.Reviewer{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
}

// Create registers a reviewer account.
func (s *ReviewerService) Create(ctx context.Context, req *types.CreateReviewerRequest) (*types.Reviewer, error) {
	hash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	reviewer, err := s.store.CreateReviewer(ctx, req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: req.Email}
		}
		return nil, fmt.Errorf("failed to create reviewer: %w", err)
	}
	return toTypesReviewer(reviewer), nil
}

// Login verifies credentials. Unknown emails and wrong passwords return the same error.
func (s *ReviewerService) Login(ctx context.Context, req *types.LoginRequest) (*types.Reviewer, error) {
	reviewer, err := s.store.GetReviewerByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer by email: %w", err)
	}
	if reviewer == nil || !s.passwordConfig.VerifyPassword(req.Password, reviewer.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return toTypesReviewer(reviewer), nil
}

// Get returns a reviewer profile.
func (s *ReviewerService) Get(ctx context.Context, id uuid.UUID) (*types.Reviewer, error) {
	reviewer, err := s.store.GetReviewer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	if reviewer == nil {
		return nil, &ErrReviewerNotFound{ID: id}
	}
	return toTypesReviewer(reviewer), nil
}
