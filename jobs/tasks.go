package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWarmOptions loads filter option lists into the shared cache.
	TaskWarmOptions = "registry:options:warm"
	// TaskInvalidateOptions drops the cached option lists of resources.
	TaskInvalidateOptions = "registry:options:invalidate"
)

// WarmOptionsPayload selects what a warm-up run loads. An empty Resources
// list warms the root level of every hierarchical screen.
type WarmOptionsPayload struct {
	Resources   []string `json:"resources,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
}

// InvalidateOptionsPayload names the resources whose options are stale.
type InvalidateOptionsPayload struct {
	Resources []string `json:"resources"`
}

// NewWarmOptionsTask constructs an Asynq task.
func NewWarmOptionsTask(payload WarmOptionsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmOptions, data), nil
}

// NewInvalidateOptionsTask constructs an Asynq task.
func NewInvalidateOptionsTask(payload InvalidateOptionsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvalidateOptions, data), nil
}
