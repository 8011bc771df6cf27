package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/skolara/skolara/testing"
)

func TestNewAnomalyScanTask(t *testing.T) {
	task, err := NewAnomalyScanTask(AnomalyScanPayload{WindowMinutes: 30, Threshold: 5})
	require.NoError(t, err)
	assert.Equal(t, TaskAuditAnomalyScan, task.Type())

	var payload AnomalyScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 30, payload.WindowMinutes)
	assert.Equal(t, 5, payload.Threshold)
}

func TestNewAnomalyScanTaskZeroPayload(t *testing.T) {
	task, err := NewAnomalyScanTask(AnomalyScanPayload{})
	require.NoError(t, err)

	var payload AnomalyScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Zero(t, payload.WindowMinutes)
	assert.Zero(t, payload.Threshold)
}
