package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

const (
	uploadPage = "/"
	panelPage  = "/panel/submissions"

	// multipart parts beyond this are spooled to disk
	multipartMemory = 8 << 20
)

// submissionPreview is the contributor view of a submission; contact details are left out.
type submissionPreview struct {
	ID              uuid.UUID  `json:"id"`
	Subject         string     `json:"subject"`
	AuthorSource    string     `json:"author_source"`
	PublicationDate string     `json:"publication_date"`
	TextType        string     `json:"text_type"`
	TextTypeLabel   string     `json:"text_type_label"`
	ExtractedText   string     `json:"extracted_text"`
	EditedText      string     `json:"edited_text"`
	Status          string     `json:"status"`
	PDFURL          string     `json:"pdf_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}

func (s *Server) preview(r *http.Request, sub *db.Submission) submissionPreview {
	p := submissionPreview{
		ID:              sub.ID,
		Subject:         sub.Subject,
		AuthorSource:    sub.AuthorSource,
		PublicationDate: sub.PublicationDate,
		TextType:        sub.TextType,
		TextTypeLabel:   s.lifecycle.TextTypes().Label(sub.TextType),
		ExtractedText:   sub.ExtractedText,
		EditedText:      sub.EditedText,
		Status:          sub.Status,
		CreatedAt:       sub.CreatedAt,
		DecidedAt:       sub.DecidedAt,
	}
	link, err := s.lifecycle.PDFURL(r.Context(), sub)
	if err != nil {
		s.logger.Warn("Failed to build PDF link", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	p.PDFURL = link
	return p
}

// pathID parses the {id} path value. Malformed ids are reported as missing submissions.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &lifecycle.ErrSubmissionNotFound{}
	}
	return id, nil
}

func (s *Server) handleTextTypes(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"text_types": s.lifecycle.TextTypes().All()})
}

// handleCreateSubmission accepts the multipart upload form and redirects to the preview.
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	tooLarge := func() {
		s.errorResponse(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d MB", s.maxUploadBytes>>20))
	}
	if r.ContentLength > s.maxUploadBytes {
		tooLarge()
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := types.CreateSubmissionRequest{
		Name:            r.FormValue("name"),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Subject:         r.FormValue("subject"),
		AuthorSource:    r.FormValue("author_source"),
		PublicationDate: r.FormValue("publication_date"),
		TextType:        r.FormValue("text_type"),
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "validation error: pdf_file - required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.errorResponse(w, http.StatusBadRequest, "validation error: pdf_file - must be a .pdf file")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	sub, err := s.lifecycle.Create(r.Context(), lifecycle.CreateInput{
		Name:            req.Name,
		Email:           req.Email,
		Subject:         req.Subject,
		AuthorSource:    req.AuthorSource,
		PublicationDate: req.PublicationDate,
		TextType:        req.TextType,
		FileName:        header.Filename,
		PDF:             data,
	})
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/submissions/%s/preview", sub.ID))
	s.jsonResponse(w, http.StatusSeeOther, s.preview(r, sub))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", uploadPage)
		return
	}
	sub, err := s.lifecycle.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err, uploadPage)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.preview(r, sub))
}

func (s *Server) handleContributorEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.notFoundResponse(w, "submission not found", uploadPage)
		return
	}
	var req types.EditTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := s.lifecycle.Edit(r.Context(), id, req.EditedText)
	if err != nil {
		s.serviceError(w, r, err, uploadPage)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.preview(r, sub))
}
