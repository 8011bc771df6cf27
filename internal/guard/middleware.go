package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skolara/skolara/internal/audit"
	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/observability"
	"github.com/skolara/skolara/internal/platform/httpx"
	"github.com/skolara/skolara/internal/shared"
	"github.com/skolara/skolara/internal/token"
)

// Verifier decodes and validates a presented bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// Middleware wires authentication and role checks for HTTP handlers.
type Middleware struct {
	Verifier Verifier
	Recorder *audit.Recorder
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Authenticate verifies the bearer token and stores the decoded actor in
// the request context. A missing or failing token yields 401 with the
// token-layer code, distinct from the 403 produced by RequireRole.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		claims, err := m.Verifier.Verify(r.Context(), raw)
		if err != nil {
			m.Metrics.ObserveVerification("failed")
			httpx.RespondError(w, err)
			return
		}
		m.Metrics.ObserveVerification("ok")
		actor := &shared.Actor{
			ID:       claims.Subject,
			Role:     string(claims.Role),
			SchoolID: claims.SchoolID,
			TokenID:  claims.ID,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole ensures the authenticated actor's role is in the route's
// allowed set. A mismatch is recorded in the audit ledger and answered
// with 403.
func (m Middleware) RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, shared.ErrTokenAbsent)
				return
			}
			if !Allowed(identity.Role(actor.Role), roles...) {
				if m.Logger != nil {
					m.Logger.Warn("access denied",
						slog.String("actor", actor.ID),
						slog.String("role", actor.Role),
						slog.String("path", r.URL.Path))
				}
				m.Recorder.Record(r.Context(), audit.Entry{
					Action:       audit.ActionAccessDenied,
					ResourceType: audit.ResourceTypeRoute,
					Data: map[string]any{
						"path": r.URL.Path,
						"role": actor.Role,
					},
				})
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header. An empty
// string means no token was presented.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
