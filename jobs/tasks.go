package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantIntegrity scans stored grants for malformed permission sets.
	TaskGrantIntegrity = "grants:integrity"
	// TaskGrantWarmup pre-loads the grant cache for a set of users.
	TaskGrantWarmup = "grants:warmup"
)

// GrantWarmupPayload lists users whose grants should be pre-fetched.
type GrantWarmupPayload struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

// NewGrantIntegrityTask constructs a grant-integrity scan task.
func NewGrantIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGrantIntegrity, nil)
}

// NewGrantWarmupTask constructs a cache-warmup task.
func NewGrantWarmupTask(payload GrantWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantWarmup, data), nil
}
