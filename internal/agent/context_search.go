package agent

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/llm_client"
)

// ContextSearch digs through the conversation history for facts the current
// task needs (names, dates, listing ids, stated preferences).
type ContextSearch struct {
	Model string
}

func (c *ContextSearch) buildPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are the context-search step of a conversational assistant's task cascade.\n")
	sb.WriteString("Search the conversation history and earlier results for the information the task asks about.\n")
	sb.WriteString("Respond ONLY with JSON: {\"summary\": \"<what was found>\", \"confidence\": <float 0..1>, \"found\": [\"<item>\"]}\n")
	sb.WriteString("If nothing relevant exists, return an empty summary and an empty found list.\n\n")

	sb.WriteString(fmt.Sprintf("TASK: %s\n\n", in.Task.Description))
	writeShared(&sb, in)
	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func (c *ContextSearch) Execute(ctx context.Context, in Input) (*SearchOutput, error) {
	var out SearchOutput
	if err := llm_client.DecodeInto(ctx, c.buildPrompt(in), c.Model, nil, &out); err != nil {
		return nil, fmt.Errorf("context search: %w", err)
	}
	out.Success = strings.TrimSpace(out.Summary) != ""
	if !out.Success {
		out.Error = "context search found nothing relevant"
	}
	return &out, nil
}
