package record

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/records/pending", h.handleWorklist).Methods(http.MethodGet)
	r.HandleFunc("/records/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/records/{id}/classification", h.handleBlindClassification).Methods(http.MethodPost)
	r.HandleFunc("/records/{id}/reveal", h.handleReveal).Methods(http.MethodGet)
	r.HandleFunc("/records/{id}/validation", h.handleValidation).Methods(http.MethodPost)
	r.HandleFunc("/reports/agreement", h.handleAgreementReport).Methods(http.MethodGet)
}

func (h *Handler) handleWorklist(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	pending, err := h.service.Worklist(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list pending records")
		http.Error(w, "failed to list records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleBlindClassification(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var req models.BlindClassificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.service.SubmitBlindClassification(r.Context(), id, req.ESILevel); err != nil {
		writeError(w, err, "failed to record blind classification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Reveal(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to reveal record")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var req models.ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	rec, err := h.service.Validate(r.Context(), id, req.FinalESILevel, req.FeedbackText)
	if err != nil {
		writeError(w, err, "failed to validate record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAgreementReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AgreementReport(r.Context(), 0)
	if err != nil {
		logger.Log.WithError(err).Error("failed to build agreement report")
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidLevel):
		http.Error(w, "esi level must be between 1 and 5", http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyClassified):
		http.Error(w, "already classified", http.StatusConflict)
	case errors.Is(err, ErrNotClassified):
		http.Error(w, "record not yet classified", http.StatusConflict)
	case errors.Is(err, ErrAlreadyValidated):
		http.Error(w, "record already validated", http.StatusConflict)
	default:
		logger.Log.WithError(err).Error(logMsg)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
