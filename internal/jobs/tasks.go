package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeListingSweep = "listing:sweep"
	TaskTypeStateCleanup = "state:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// ListingSweepPayload is intentionally empty: the sweep always works off the
// current clock, so there is nothing to parameterize yet.
type ListingSweepPayload struct{}

type StateCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

func NewListingSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(ListingSweepPayload{})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeListingSweep, payload, asynq.Queue(QueueDefault)), nil
}

func NewStateCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(StateCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeStateCleanup, payload, asynq.Queue(QueueLow)), nil
}
