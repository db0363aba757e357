package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/middleware"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

type submissionDetail struct {
	*db.Submission
	TextTypeLabel string `json:"text_type_label"`
	PDFURL        string `json:"pdf_url,omitempty"`
}

type decisionResponse struct {
	Submission   submissionDetail    `json:"submission"`
	Merge        types.MergeResponse `json:"merge"`
	MergeWarning string              `json:"merge_warning,omitempty"`
}

func (s *Server) detail(r *http.Request, sub *db.Submission) submissionDetail {
	link, err := s.lifecycle.PDFURL(r.Context(), sub)
	if err != nil {
		s.logger.Warn("Failed to build PDF link", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	return submissionDetail{
		Submission:    sub,
		TextTypeLabel: s.lifecycle.TextTypes().Label(sub.TextType),
		PDFURL:        link,
	}
}

func reviewerField(r *http.Request) zap.Field {
	id, err := middleware.GetReviewerID(r)
	if err != nil {
		return zap.Skip()
	}
	return zap.String("reviewer_id", id.String())
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(query url.Values, name string) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("validation error: %s - must be a non-negative integer", name)
	}
	return n, nil
}

// handleListSubmissions lists submissions. status defaults to pending; "all" lists every status.
// Without limit every match is returned; limit and offset page through the list.
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	status := strings.TrimSpace(query.Get("status"))
	switch status {
	case "":
		status = db.StatusPending
	case "all":
		status = ""
	}

	limit, err := queryInt(query, "limit")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(query, "offset")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	subs, err := s.lifecycle.List(r.Context(), lifecycle.ListFilter{
		Status: status,
		Search: query.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"count":       len(subs),
		"offset":      offset,
	})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", panelPage)
		return
	}
	sub, err := s.lifecycle.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err, panelPage)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.detail(r, sub))
}

func (s *Server) handleReviewerEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", panelPage)
		return
	}
	var req types.EditTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := s.lifecycle.Edit(r.Context(), id, req.EditedText)
	if err != nil {
		s.serviceError(w, r, err, panelPage)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.detail(r, sub))
}

// handleDecision commits an accept or reject. A failed corpus merge still answers 200
// and carries merge_warning.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", panelPage)
		return
	}
	var req types.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	result, err := s.lifecycle.Decide(r.Context(), id, req.Action, req.EditedText)
	if err != nil {
		s.serviceError(w, r, err, panelPage)
		return
	}

	resp := decisionResponse{
		Submission:   s.detail(r, result.Submission),
		MergeWarning: result.MergeWarning,
	}
	if result.Merge != nil {
		resp.Merge = types.MergeResponse{
			Merged:    true,
			CharCount: result.Merge.Record.CharCount,
			WordCount: result.Merge.Record.WordCount,
		}
	} else {
		resp.Merge.Warning = result.MergeWarning
	}
	s.logger.Info("Decision recorded",
		zap.String("submission_id", id.String()),
		zap.String("action", req.Action),
		reviewerField(r))
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleRetryMerge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", panelPage)
		return
	}
	sub, err := s.lifecycle.RetryMerge(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err, panelPage)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.detail(r, sub))
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", panelPage)
		return
	}
	if err := s.lifecycle.Delete(r.Context(), id); err != nil {
		s.serviceError(w, r, err, panelPage)
		return
	}
	s.logger.Info("Submission deleted by reviewer", zap.String("submission_id", id.String()), reviewerField(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReconciliations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.lifecycle.OpenReconciliations(r.Context())
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	if recs == nil {
		recs = []corpus.Reconciliation{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"reconciliations": recs})
}

func (s *Server) handleResumeReconciliations(w http.ResponseWriter, r *http.Request) {
	report, err := s.lifecycle.ResumeOpen(r.Context())
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}
