// Package jobs defines background tasks and the Asynq worker that runs
// them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNumberingAudit is the task type for the nightly sequence audit.
	TaskNumberingAudit = "numbering:audit"
)

// NumberingAuditPayload selects the day to audit. An empty DateKey means
// "yesterday" at execution time, which is what the cron trigger uses.
type NumberingAuditPayload struct {
	DateKey string `json:"date_key,omitempty"`
}

// NewNumberingAuditTask constructs an Asynq task.
func NewNumberingAuditTask(payload NumberingAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNumberingAudit, data), nil
}
