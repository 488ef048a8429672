package metrics

import "time"

type TaskMetrics struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	WorkerID   string    `json:"worker_id,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type CascadeMetrics struct {
	CascadeID  string        `json:"cascade_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Succeeded  bool          `json:"succeeded"`
	Tasks      []TaskMetrics `json:"tasks"`
}

// Compute derived fields for a finished task.
func (t *TaskMetrics) Finalize() {
	t.DurationMs = t.End.Sub(t.Start).Milliseconds()
}
