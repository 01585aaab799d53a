package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/pipeline"
	"github.com/matzehuels/kintree/pkg/tree"
)

// ===== Persons =====

func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := s.store.ListPersons(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, persons)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	var p tree.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode person"))
		return
	}
	stored, err := s.store.AddPerson(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	var p tree.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode person"))
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := s.store.UpdatePerson(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Relationships =====

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := s.store.ListRelationships(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	var rel tree.Relationship
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode relationship"))
		return
	}
	stored, err := s.store.AddRelationship(r.Context(), rel)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRelationship(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Layout =====

// layoutResponse is the JSON body of GET /api/layout.
type layoutResponse struct {
	Model        json.RawMessage `json:"model"`
	SnapshotHash string          `json:"snapshot_hash"`
	DataErrors   []string        `json:"data_errors,omitempty"`
	Cached       bool            `json:"cached"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	result := s.runLayout(w, r, pipeline.FormatJSON)
	if result == nil {
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{
		Model:        json.RawMessage(result.Artifacts[pipeline.FormatJSON]),
		SnapshotHash: result.SnapshotHash,
		DataErrors:   result.DataErrors,
		Cached:       result.CacheInfo.ModelHit,
	})
}

func (s *Server) handleLayoutSVG(w http.ResponseWriter, r *http.Request) {
	result := s.runLayout(w, r, pipeline.FormatSVG)
	if result == nil {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(result.Artifacts[pipeline.FormatSVG])
}

func (s *Server) handleLayoutDOT(w http.ResponseWriter, r *http.Request) {
	result := s.runLayout(w, r, pipeline.FormatDOT)
	if result == nil {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write(result.Artifacts[pipeline.FormatDOT])
}

// runLayout executes the pipeline for a layout request. On failure it
// writes the error response and returns nil.
func (s *Server) runLayout(w http.ResponseWriter, r *http.Request, format string) *pipeline.Result {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return nil
	}

	opts := s.opts
	opts.Formats = []string{format}
	opts.Refresh = r.URL.Query().Get("refresh") == "true"
	result, err := s.runner.Execute(r.Context(), snap, opts)
	if err != nil {
		s.writeError(w, err)
		return nil
	}
	return result
}

// ===== Response helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, errorResponse{
		Code:    string(code),
		Message: errors.UserMessage(err),
	})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodePersonNotFound, errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDuplicateRecord:
		return http.StatusConflict
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidKind, errors.ErrCodeInvalidFormat,
		errors.ErrCodeSelfRelationship, errors.ErrCodeUnknownPerson:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
