package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditAnomalyScan is the task type for the failed-login scan.
	TaskAuditAnomalyScan = "audit:anomaly_scan"
)

// AnomalyScanPayload parameterises one failed-login scan.
type AnomalyScanPayload struct {
	WindowMinutes int `json:"window_minutes"`
	Threshold     int `json:"threshold"`
}

// NewAnomalyScanTask constructs an Asynq task.
func NewAnomalyScanTask(payload AnomalyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditAnomalyScan, data), nil
}
