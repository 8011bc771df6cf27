package audit

import (
	"context"
	"log/slog"

	"github.com/skolara/skolara/internal/shared"
)

// Recorder appends security events on behalf of collaborators. Actor and
// origin default from the request-scoped context when the caller leaves
// them nil; there is no ambient "current user".
type Recorder struct {
	ledger Ledger
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(ledger Ledger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ledger: ledger, logger: logger}
}

// Record appends one entry, filling actor and origin from context. A ledger
// failure is logged and swallowed: a full audit trail is wanted but a failed
// write must not turn a successful login into a 500.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.ledger == nil {
		return
	}
	if entry.ActorID == nil {
		if actor := shared.ActorFromContext(ctx); actor != nil {
			entry.ActorID = &actor.ID
		}
	}
	if entry.IPAddress == nil {
		if origin := shared.OriginFromContext(ctx); origin != "" {
			entry.IPAddress = &origin
		}
	}
	if _, err := r.ledger.Append(ctx, entry); err != nil {
		r.logger.Error("audit append", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
