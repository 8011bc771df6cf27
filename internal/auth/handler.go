// Package auth wires the HTTP endpoints of the token lifecycle: login,
// refresh, logout and the identity summary.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skolara/skolara/internal/audit"
	"github.com/skolara/skolara/internal/guard"
	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/observability"
	"github.com/skolara/skolara/internal/platform/httpx"
	"github.com/skolara/skolara/internal/shared"
	"github.com/skolara/skolara/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	authority  *token.Authority
	identities identity.Repository
	recorder   *audit.Recorder
	metrics    *observability.Metrics
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, authority *token.Authority, identities identity.Repository, recorder *audit.Recorder, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		authority:  authority,
		identities: identities,
		recorder:   recorder,
		metrics:    metrics,
		validator:  validator.New(),
	}
}

// MountRoutes registers the unauthenticated auth routes. Refresh and logout
// take the bearer token straight from the header instead of going through
// the authentication middleware: refresh must accept tokens that are past
// expiry but still inside the refresh window.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		details := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.ErrorWithDetails(w, http.StatusBadRequest, httpx.CodeValidation, "Invalid request format", details)
		return
	}

	pair, ident, err := h.authority.Issue(r.Context(), req.Username, req.Password)
	if err != nil {
		if err == shared.ErrInvalidCredentials {
			h.metrics.ObserveLogin("failed")
			h.recorder.Record(r.Context(), audit.Entry{
				Action:       audit.ActionLoginFailed,
				ResourceType: audit.ResourceTypeIdentity,
				Data:         map[string]any{"username": req.Username},
			})
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("mint tokens", slog.Any("error", err))
		h.metrics.ObserveLogin("error")
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "Could not create token")
		return
	}

	h.metrics.ObserveLogin("succeeded")
	h.recorder.Record(r.Context(), audit.Entry{
		ActorID:      &ident.ID,
		Action:       audit.ActionLoginSucceeded,
		ResourceType: audit.ResourceTypeIdentity,
		ResourceID:   &ident.ID,
	})
	httpx.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := guard.BearerToken(r)
	pair, ident, err := h.authority.Refresh(r.Context(), raw)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		ActorID:      &ident.ID,
		Action:       audit.ActionTokenRefreshed,
		ResourceType: audit.ResourceTypeIdentity,
		ResourceID:   &ident.ID,
	})
	httpx.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := guard.BearerToken(r)
	if raw == "" {
		httpx.RespondError(w, shared.ErrTokenAbsent)
		return
	}
	claims, verifyErr := h.authority.Verify(r.Context(), raw)
	if err := h.authority.Revoke(r.Context(), raw); err != nil {
		h.logger.Error("revoke token", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeLogoutFailed, "Failed to logout")
		return
	}
	h.metrics.ObserveRevocation()
	entry := audit.Entry{
		Action:       audit.ActionLogout,
		ResourceType: audit.ResourceTypeIdentity,
	}
	if verifyErr == nil {
		entry.ActorID = &claims.Subject
		entry.ResourceID = &claims.Subject
	}
	h.recorder.Record(r.Context(), entry)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

type meResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	Status   string  `json:"status"`
	SchoolID *string `json:"schoolId"`
}

// HandleMe returns the authenticated identity summary. Mounted behind the
// authentication middleware.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, shared.ErrTokenAbsent)
		return
	}
	ident, err := h.identities.FindByID(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		ID:       ident.ID,
		Username: ident.Username,
		Email:    ident.Email,
		Role:     string(ident.Role),
		Status:   string(ident.Status),
		SchoolID: ident.SchoolID,
	})
}
