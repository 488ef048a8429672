package conversation

import "strings"

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ToolOutcome carries a tool result from an earlier cascade so the matcher
// can weigh follow-up messages against it.
type ToolOutcome struct {
	ToolName string `json:"tool_name"`
	Summary  string `json:"summary"`
}

// State is everything the matcher and planner see about one conversation.
type State struct {
	SessionID   string        `json:"session_id"`
	Turns       []Turn        `json:"turns"`
	LastMessage string        `json:"last_message"`
	ToolResults []ToolOutcome `json:"tool_results,omitempty"`
	ContextVars map[string]string
}

// RecentWindow returns up to n of the most recent turns.
func (s *State) RecentWindow(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// TranscriptWindow renders the recent turns as a prompt block.
func (s *State) TranscriptWindow(n int) string {
	var sb strings.Builder
	for _, t := range s.RecentWindow(n) {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
