package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	cataloguedomain "learning-app-go/internal/domain/catalogue"
	"learning-app-go/internal/domain/learning"
)

const idempotencyHeader = "Idempotency-Key"

type updateProgressRequest struct {
	Progress *float64 `json:"progress"`
}

type createNoteRequest struct {
	LessonID  int64      `json:"lessonId"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp"`
}

type noteResponse struct {
	ID        int64     `json:"id"`
	LessonID  int64     `json:"lessonId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.Catalogue.ListLessons(r.Context())
	if err != nil {
		h.log.InternalError("httpserver: list lessons failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list lessons")
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (h *Handlers) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}

	var req updateProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if req.Progress == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "progress is required")
		return
	}

	found, err := h.Catalogue.UpdateProgress(r.Context(), lessonID, *req.Progress)
	if err != nil {
		if errors.Is(err, cataloguedomain.ErrInvalidProgress) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_progress", err.Error())
			return
		}
		h.log.InternalError("httpserver: update progress failed", err, "lesson_id", lessonID)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update progress")
		return
	}
	if !found {
		h.log.Debug("httpserver: progress for unknown lesson ignored", "lesson_id", lessonID)
	}
	writeAck(w, "Progress updated")
}

func (h *Handlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}

	note := learning.Note{LessonID: req.LessonID, Text: req.Text}
	if req.Timestamp != nil {
		note.Timestamp = req.Timestamp.UTC()
	}

	saved, replayed, err := h.Catalogue.CreateNote(r.Context(), r.Header.Get(idempotencyHeader), note)
	if err != nil {
		if errors.Is(err, cataloguedomain.ErrInvalidNote) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_note", err.Error())
			return
		}
		h.log.InternalError("httpserver: create note failed", err, "lesson_id", req.LessonID)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create note")
		return
	}
	if replayed {
		h.log.Info("httpserver: note replayed", "note_id", saved.ID)
	}
	writeJSON(w, http.StatusOK, toNoteResponse(saved))
}

func (h *Handlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.Catalogue.ListNotes(r.Context())
	if err != nil {
		h.log.InternalError("httpserver: list notes failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list notes")
		return
	}
	resp := make([]noteResponse, 0, len(notes))
	for _, note := range notes {
		resp = append(resp, toNoteResponse(note))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Fallback answers unrouted requests the way the mock backend did: GETs yield
// an empty list, everything else a negative acknowledgement.
func (h *Handlers) Fallback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Success: false, Message: "Unknown POST endpoint"})
}

func toNoteResponse(note learning.Note) noteResponse {
	return noteResponse{
		ID:        note.ID,
		LessonID:  note.LessonID,
		Text:      note.Text,
		Timestamp: note.Timestamp,
	}
}
