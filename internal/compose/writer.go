package compose

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
	"concierge/internal/planner"
	"concierge/internal/worker"
)

// WriterInput is everything the final composer sees for one reply.
type WriterInput struct {
	Conversation     *conversation.State
	ActiveGuidelines []guideline.Match
	WorkerResults    []*worker.Result
	Plan             *planner.ActionPlan
	GlossaryContext  string
	RAGContext       string
}

type WriterOutput struct {
	Response string `json:"response"`
}

// Writer composes the single outbound natural-language reply. Called once
// per non-aborted cascade.
type Writer interface {
	Compose(ctx context.Context, in WriterInput) (*WriterOutput, error)
}

// LLMWriter is the default free-text composer.
type LLMWriter struct {
	Model string
}

func (w *LLMWriter) buildPrompt(in WriterInput) string {
	var sb strings.Builder
	sb.WriteString("You are the reply writer of a conversational assistant. Compose ONE natural reply to the customer.\n")
	sb.WriteString("Use the worker results below as your source of truth; never mention internal machinery, task ids, or scores.\n\n")

	if len(in.ActiveGuidelines) > 0 {
		sb.WriteString("ACTIVE GUIDELINES (follow their actions):\n")
		for _, m := range in.ActiveGuidelines {
			sb.WriteString(fmt.Sprintf("- %s\n", m.Guideline.Action))
		}
		sb.WriteString("\n")
	}

	if len(in.WorkerResults) > 0 {
		sb.WriteString("WORKER RESULTS:\n")
		for _, r := range in.WorkerResults {
			sb.WriteString(fmt.Sprintf("- %s [%s]: %.500s\n", r.WorkerID, r.Status, r.Response))
		}
		sb.WriteString("\n")
	}

	if in.GlossaryContext != "" {
		sb.WriteString("GLOSSARY:\n" + in.GlossaryContext + "\n\n")
	}
	if in.RAGContext != "" {
		sb.WriteString("REFERENCE MATERIAL:\n" + in.RAGContext + "\n\n")
	}

	if transcript := in.Conversation.TranscriptWindow(6); transcript != "" {
		sb.WriteString("RECENT CONVERSATION:\n")
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("CUSTOMER MESSAGE: %q\n\n", in.Conversation.LastMessage))
	sb.WriteString("Reply: ")
	return sb.String()
}

func (w *LLMWriter) Compose(ctx context.Context, in WriterInput) (*WriterOutput, error) {
	text, err := llm_client.Generate(ctx, w.buildPrompt(in), w.Model)
	if err != nil {
		return nil, fmt.Errorf("compose reply: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: writer returned empty reply", llm_client.ErrMalformed)
	}
	return &WriterOutput{Response: text}, nil
}
