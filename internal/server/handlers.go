package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/shelf"
)

// maxBody bounds request bodies carrying routine text.
const maxBody = 1 << 20

// ExtractResponse is the body of POST /api/v1/extract.
type ExtractResponse struct {
	Text  string       `json:"text"`
	Saved *shelf.Entry `json:"saved,omitempty"`
}

// ShelfResponse is the body of GET /api/v1/shelf/{name}.
type ShelfResponse struct {
	Entry shelf.Entry `json:"entry"`
	Text  string      `json:"text"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract reads the routine shown in the builder. With ?save=<name> the
// result is also put on the shelf.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	text, err := s.eng.Extract(r.Context())
	if err != nil {
		s.log.Error("extract error", "error", err)
		writeError(w, err)
		return
	}

	resp := ExtractResponse{Text: text}
	if name := r.URL.Query().Get("save"); name != "" {
		rt, err := models.DecodeRoutine([]byte(text))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		entry, err := s.store.Save(r.Context(), name, rt)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Saved = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleImport replays the routine text in the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rep, err := s.eng.Import(r.Context(), string(body))
	if err != nil {
		s.log.Error("import error", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.eng.Library(r.Context())
	if err != nil {
		s.log.Error("library error", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListShelf(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetShelf(w http.ResponseWriter, r *http.Request) {
	rt, entry, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := models.EncodeRoutine(rt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ShelfResponse{Entry: entry, Text: string(text)})
}

// handlePutShelf saves the routine text in the body under the URL name.
func (s *Server) handlePutShelf(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rt, err := models.DecodeRoutine(body)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.store.Save(r.Context(), chi.URLParam(r, "name"), rt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteShelf(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportShelf(w http.ResponseWriter, r *http.Request) {
	rt, _, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.eng.ImportRoutine(r.Context(), rt)
	if err != nil {
		s.log.Error("import error", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
		return
	}
	rep, err := s.store.Report(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// writeError maps err to a status. Anything not recognized came from the
// builder side and is reported as a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, models.ErrMalformed):
		status = http.StatusBadRequest
	case errors.Is(err, shelf.ErrNotFound), errors.Is(err, shelf.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
