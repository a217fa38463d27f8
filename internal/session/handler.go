package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/shared"
)

// Handler serves sign-in, session status and sign-out.
type Handler struct {
	store  Store
	csrf   *shared.CSRFManager
	drop   func(sessionID string)
	logger *slog.Logger
}

// NewHandler builds the session handler. drop discards whatever state is
// held for a session id that is no longer valid.
func NewHandler(store Store, csrf *shared.CSRFManager, drop func(string), logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if drop == nil {
		drop = func(string) {}
	}
	return &Handler{store: store, csrf: csrf, drop: drop, logger: logger}
}

// MountRoutes registers the session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.status)
	r.Post("/", h.signIn)
	r.Delete("/", h.signOut)
}

type statusResponse struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Role          string    `json:"role,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	CSRFToken     string    `json:"csrf_token"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := statusResponse{CSRFToken: token}
	if sess.User() != "" {
		cred, err := h.store.Load(r.Context(), sess.ID)
		switch {
		case err == nil && !cred.Expired(time.Now()):
			resp.Authenticated = true
			resp.UserID = cred.UserID
			resp.Role = cred.Role
			resp.ExpiresAt = cred.ExpiresAt
		case err != nil && !errors.Is(err, ErrNoCredential):
			h.logger.Error("load credential", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		default:
			sess.SignOut()
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cred, err := ParseToken(req.Token, time.Now())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, shared.ErrNoSession))
		return
	}
	previous := sess.ID
	sess.SignIn(cred.UserID, cred.Role)
	if err := h.store.Save(r.Context(), sess.ID, cred); err != nil {
		h.logger.Error("save credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.store.Clear(r.Context(), previous); err != nil {
		h.logger.Warn("clear previous credential", slog.Any("error", err))
	}
	h.drop(previous)
	token, err := h.csrf.EnsureToken(sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("session signed in", slog.String("user", cred.UserID), slog.String("role", cred.Role))
	httpx.JSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		UserID:        cred.UserID,
		Role:          cred.Role,
		ExpiresAt:     cred.ExpiresAt,
		CSRFToken:     token,
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.Clear(r.Context(), sess.ID); err != nil {
		h.logger.Error("clear credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.drop(sess.ID)
	sess.SignOut()
	w.WriteHeader(http.StatusNoContent)
}
