package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
)

type Handler struct {
	machine *Machine
	store   *SessionStore
}

func NewHandler(machine *Machine, store *SessionStore) *Handler {
	return &Handler{machine: machine, store: store}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/sessions", h.handleStartSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/messages", h.handleMessage).Methods(http.MethodPost)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	session, resp := h.machine.Start()
	if err := h.store.Save(r.Context(), session); err != nil {
		logger.Log.WithError(err).Error("failed to save intake session")
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	session, err := h.store.Load(r.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to load intake session")
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	reply, err := h.machine.Advance(r.Context(), session, req.Text)
	if err != nil {
		logger.Log.WithError(err).WithField("session_id", id).Error("failed to advance intake session")
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	if err := h.store.Save(r.Context(), session); err != nil {
		logger.Log.WithError(err).Error("failed to save intake session")
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
