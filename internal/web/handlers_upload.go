package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/idcards/internal/core"
	"github.com/JonMunkholm/idcards/internal/logging"
	"github.com/JonMunkholm/idcards/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for boundaries and
// other form fields.
const multipartOverhead = 1 << 20

// handlePreview parses an uploaded CSV and keeps the result as a preview
// session that can be committed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	schema, err := recordTypeParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err), 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	preview, err := s.service.Preview(r.Context(), schema.Type, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		_ = templates.PreviewSummary(preview).Render(r.Context(), w)
		return
	}

	status := http.StatusOK
	if preview.Summary.Outcome == core.OutcomeFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, preview)
}

// handleGetPreview returns a live preview session.
func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	id, err := importIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	preview, err := s.service.GetPreview(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// handleCommit registers the records of a previewed import.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id, err := importIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res, err := s.service.Commit(r.Context(), id)
	if err != nil {
		if res != nil {
			s.respondPartial(w, r, err, res)
			return
		}
		s.respondError(w, r, err, 0)
		return
	}

	logging.WithFields(r.Context(), "import_id", id).Debug("commit response", "inserted", res.Inserted)

	if isHTMX(r) {
		_ = templates.CommitSummary(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{CommitResult: res, Outcome: res.Outcome()})
}

type commitResponse struct {
	*core.CommitResult
	Outcome core.ImportOutcome `json:"outcome"`
}

// registerRequest is the JSON body of the register endpoint.
type registerRequest struct {
	Records []map[string]string `json:"records" validate:"required,min=1,max=10000"`
}

// handleRegister validates JSON objects against the record type's rules
// and registers the accepted ones without a preview step.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	schema, err := recordTypeParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err), 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.service.RegisterObjects(r.Context(), schema.Type, req.Records)
	if err != nil {
		if res != nil {
			s.respondPartial(w, r, err, res)
			return
		}
		s.respondError(w, r, err, 0)
		return
	}

	status := http.StatusOK
	if res.Inserted == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, commitResponse{CommitResult: res, Outcome: res.Outcome()})
}
