package planner

// TaskType is a closed set; the executor switches over it exhaustively, so a
// new type is a compile-visible change, not a stray string.
type TaskType string

const (
	TaskReasoning     TaskType = "reasoning"
	TaskContextSearch TaskType = "context_search"
	TaskWorkerCall    TaskType = "worker_call"
	TaskAskToUser     TaskType = "ask_to_user"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskReasoning, TaskContextSearch, TaskWorkerCall, TaskAskToUser:
		return true
	}
	return false
}

type TaskStatus string

// Status transitions are monotonic: pending → running → terminal.
const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusAskUser   TaskStatus = "ask_user"
)

// PlanTask is one unit of work. The executor mutates Status/Result/Error in
// place as it walks the plan.
type PlanTask struct {
	ID          string     `json:"id"`
	Step        int        `json:"step"`
	Description string     `json:"description"`
	Type        TaskType   `json:"type"`
	WorkerID    string     `json:"worker_id,omitempty"` // only for worker_call
	DependsOn   []string   `json:"depends_on,omitempty"`
	Status      TaskStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ActionPlan is produced once per message and consumed once by the executor.
type ActionPlan struct {
	Tasks               []*PlanTask `json:"tasks"`
	CriticalPath        bool        `json:"critical_path"`
	DirectToWriter      bool        `json:"direct_to_writer"`
	Reasoning           string      `json:"reasoning,omitempty"`
	EstimatedComplexity Complexity  `json:"estimated_complexity,omitempty"`
}

type MessageClass string

const (
	ClassRequiresAction MessageClass = "requires_action"
	ClassTextOnly       MessageClass = "text_only"
)

// Classification is the stage-1 verdict on the incoming message.
type Classification struct {
	Classification  MessageClass `json:"classification"`
	Confidence      float64      `json:"confidence"`
	Reasoning       string       `json:"reasoning"`
	DetectedIntents []string     `json:"detected_intents,omitempty"`
}
