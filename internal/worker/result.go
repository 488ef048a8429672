package worker

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ToolExecution records one tool invocation made during generation.
type ToolExecution struct {
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Validation summarizes the scoring pass(es) over a worker's output.
// Iterations is 0 only when the worker never activated, otherwise 1 or 2.
type Validation struct {
	Passed             bool     `json:"passed"`
	Score              float64  `json:"score"` // 0..10
	Iterations         int      `json:"iterations"`
	Feedback           string   `json:"feedback,omitempty"`
	GuidelinesCriteria []string `json:"guidelines_criteria,omitempty"`
}

type Metadata struct {
	ExecutionTimeMs     int64    `json:"execution_time_ms"`
	ActivatedGuidelines []string `json:"activated_guidelines,omitempty"`
}

// Result is produced once per worker invocation and consumed by the writer.
type Result struct {
	WorkerID      string          `json:"worker_id"`
	Status        Status          `json:"status"`
	Response      string          `json:"response"`
	ToolsExecuted []ToolExecution `json:"tools_executed,omitempty"`
	Validation    Validation      `json:"validation"`
	Metadata      Metadata        `json:"metadata"`
	Error         string          `json:"error,omitempty"`
}
