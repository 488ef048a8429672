package agent

import (
	"context"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/planner"
)

// Input is the shared request shape for the auxiliary (non-worker) agents.
type Input struct {
	Task             *planner.PlanTask
	Conversation     *conversation.State
	ActiveGuidelines []guideline.Match
	PreviousResults  map[string]string
	Plan             *planner.ActionPlan
}

// ReasoningOutput is what a reasoning step concludes from prior results.
type ReasoningOutput struct {
	Success    bool              `json:"success"`
	Conclusion string            `json:"conclusion"`
	Confidence float64           `json:"confidence"`
	Extracted  map[string]string `json:"extracted,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// SearchOutput is what a context search step found in the conversation.
type SearchOutput struct {
	Success    bool     `json:"success"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	Found      []string `json:"found,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type Reasoner interface {
	Execute(ctx context.Context, in Input) (*ReasoningOutput, error)
}

type ContextSearcher interface {
	Execute(ctx context.Context, in Input) (*SearchOutput, error)
}
