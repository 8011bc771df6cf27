package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skolara/skolara/internal/audit"
	jobmetrics "github.com/skolara/skolara/internal/jobs"
)

const (
	defaultScanWindow = 15 * time.Minute
	defaultThreshold  = 10
)

// AnomalyScanJob looks for bursts of failed logins from a single origin
// address and records a security alert in the audit ledger. The alert is
// itself an audit entry, so it inherits the ledger's immutability.
type AnomalyScanJob struct {
	Pool    *pgxpool.Pool
	Ledger  audit.Ledger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAnomalyScanJob initialises the anomaly scan handler.
func NewAnomalyScanJob(pool *pgxpool.Pool, ledger audit.Ledger, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnomalyScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalyScanJob{
		Pool:    pool,
		Ledger:  ledger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *AnomalyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Ledger == nil {
		return errors.New("anomaly scan: handler not configured")
	}
	return j.Metrics.Track(TaskAuditAnomalyScan).End(j.scan(ctx, t))
}

func (j *AnomalyScanJob) scan(ctx context.Context, t *asynq.Task) error {
	var payload AnomalyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := time.Duration(payload.WindowMinutes) * time.Minute
	if window <= 0 {
		window = defaultScanWindow
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	since := j.clock().Add(-window)

	// Skip origins already flagged inside the window so a hot origin does
	// not produce one alert per scan tick.
	const query = `
		SELECT f.ip_address, COUNT(*) AS failures
		FROM audit_logs f
		WHERE f.action = $1
		  AND f.ip_address IS NOT NULL
		  AND f.created_at >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM audit_logs a
			WHERE a.action = $3
			  AND a.resource_id = f.ip_address
			  AND a.created_at >= $2
		  )
		GROUP BY f.ip_address
		HAVING COUNT(*) >= $4`

	rows, err := j.Pool.Query(ctx, query, audit.ActionLoginFailed, since, audit.ActionSecurityAlert, threshold)
	if err != nil {
		return err
	}
	defer rows.Close()

	type hit struct {
		origin   string
		failures int64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.origin, &h.failures); err != nil {
			return err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, h := range hits {
		origin := h.origin
		if _, err := j.Ledger.Append(ctx, audit.Entry{
			Action:       audit.ActionSecurityAlert,
			ResourceType: audit.ResourceTypeOrigin,
			ResourceID:   &origin,
			Data: map[string]any{
				"failures":       h.failures,
				"window_minutes": int(window.Minutes()),
			},
		}); err != nil {
			return err
		}
		j.Logger.Warn("failed login burst",
			slog.String("origin", h.origin),
			slog.Int64("failures", h.failures))
	}
	j.Metrics.AddAlerts("failed_login_burst", len(hits))
	return nil
}
