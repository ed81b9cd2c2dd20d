package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/gateway/auth"
	"github.com/vitalsort/triage/pkg/gateway/middleware"
)

type Handler struct {
	service *Service
	tokens  *auth.JWTManager
	oidc    *auth.OIDCAuthenticator
}

func NewHandler(service *Service, tokens *auth.JWTManager, oidc *auth.OIDCAuthenticator) *Handler {
	return &Handler{service: service, tokens: tokens, oidc: oidc}
}

// RegisterPublic mounts the routes that work without a token.
func (h *Handler) RegisterPublic(r *mux.Router) {
	r.HandleFunc("/bootstrap", h.handleBootstrap).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	if h.oidc != nil {
		r.HandleFunc("/sso/login", h.handleSSOLogin).Methods(http.MethodGet)
		r.HandleFunc("/sso/callback", h.handleSSOCallback).Methods(http.MethodGet)
	}
}

// RegisterProtected mounts the routes that require an authenticated
// admin; the caller applies the auth middleware to the subrouter.
func (h *Handler) RegisterProtected(r *mux.Router) {
	r.HandleFunc("/users", h.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.handleListUsers).Methods(http.MethodGet)
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req models.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.service.Bootstrap(r.Context(), req)
	if errors.Is(err, ErrBootstrapNotAllowed) {
		http.Error(w, "already bootstrapped", http.StatusConflict)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("bootstrap failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("login failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed to issue token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

func (h *Handler) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "sso_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   300,
	})
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
}

// handleSSOCallback closes the SSO loop: the provider vouches for the
// email, the local user table decides the role, and the staff member
// walks away with the same JWT the password flow issues.
func (h *Handler) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("sso_state")
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	email, err := h.oidc.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Log.WithError(err).Warn("SSO exchange failed")
		http.Error(w, "sso exchange failed", http.StatusUnauthorized)
		return
	}

	user, err := h.service.repo.GetUserByEmail(r.Context(), email)
	if errors.Is(err, ErrUserNotFound) {
		// SSO identities must still be provisioned by an admin first.
		http.Error(w, "no staff account for this identity", http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to resolve sso user")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed to issue token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	actor := models.User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
	user, err := h.service.RegisterUser(r.Context(), actor, req)
	if errors.Is(err, ErrEmailAlreadyExists) {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list users")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
