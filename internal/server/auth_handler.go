package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/server/middleware"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

// AuthHandler handles reviewer authentication requests.
type AuthHandler struct {
	reviewers *ReviewerService
	tokens    *SessionTokens
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(reviewers *ReviewerService, tokens *SessionTokens, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		reviewers: reviewers,
		tokens:    tokens,
		validator: validator.New(),
		logger:    logger,
	}
}

// Login exchanges reviewer credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	reviewer, err := h.reviewers.Login(r.Context(), &req)
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Login failed", zap.Error(err))
		}
		writeJSONError(w, status, publicMessage(err, status))
		return
	}

	token, err := h.tokens.Issue(reviewer.ID)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.logger.Info("Reviewer logged in", zap.String("reviewer_id", reviewer.ID.String()))
	writeJSON(w, http.StatusOK, types.LoginResponse{Reviewer: reviewer, Token: token})
}

// Me returns the authenticated reviewer's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.GetReviewerID(r)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	reviewer, err := h.reviewers.Get(r.Context(), id)
	if err != nil {
		status := HTTPStatus(err)
		writeJSONError(w, status, publicMessage(err, status))
		return
	}
	writeJSON(w, http.StatusOK, reviewer)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// extractValidationErrors reports the first failed field of a validator error.
func extractValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
