package agent

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/llm_client"
)

// Reasoning draws intermediate conclusions from earlier task results so
// later workers get distilled facts instead of raw transcripts.
type Reasoning struct {
	Model string
}

func (r *Reasoning) buildPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are the reasoning step of a conversational assistant's task cascade.\n")
	sb.WriteString("Work through the task using the conversation and earlier task results. Do not invent facts.\n")
	sb.WriteString("Respond ONLY with JSON: {\"conclusion\": \"<text>\", \"confidence\": <float 0..1>, \"extracted\": {\"<key>\": \"<value>\"}, \"detail\": \"<supporting detail>\"}\n\n")

	sb.WriteString(fmt.Sprintf("TASK: %s\n\n", in.Task.Description))
	if in.Plan != nil && in.Plan.Reasoning != "" {
		sb.WriteString(fmt.Sprintf("PLAN CONTEXT: %s\n\n", in.Plan.Reasoning))
	}
	writeShared(&sb, in)
	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func (r *Reasoning) Execute(ctx context.Context, in Input) (*ReasoningOutput, error) {
	var out ReasoningOutput
	if err := llm_client.DecodeInto(ctx, r.buildPrompt(in), r.Model, nil, &out); err != nil {
		return nil, fmt.Errorf("reasoning: %w", err)
	}
	out.Success = strings.TrimSpace(out.Conclusion) != ""
	if !out.Success {
		out.Error = "reasoning produced no conclusion"
	}
	return &out, nil
}

func writeShared(sb *strings.Builder, in Input) {
	if len(in.ActiveGuidelines) > 0 {
		sb.WriteString("ACTIVE GUIDELINES:\n")
		for _, m := range in.ActiveGuidelines {
			sb.WriteString(fmt.Sprintf("- [%s] %s → %s\n", m.Guideline.ID, m.Guideline.Condition, m.Guideline.Action))
		}
		sb.WriteString("\n")
	}
	if len(in.PreviousResults) > 0 {
		sb.WriteString("EARLIER TASK RESULTS:\n")
		for id, text := range in.PreviousResults {
			sb.WriteString(fmt.Sprintf("- %s: %.300s\n", id, text))
		}
		sb.WriteString("\n")
	}
	if transcript := in.Conversation.TranscriptWindow(6); transcript != "" {
		sb.WriteString("RECENT CONVERSATION:\n")
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("USER MESSAGE: %q\n\n", in.Conversation.LastMessage))
}
