package matcher

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
)

const recentTurnWindow = 6

type evaluation struct {
	Index      int     `json:"index"`
	Applies    bool    `json:"applies"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type batchResponse struct {
	Evaluations []evaluation `json:"evaluations"`
}

func writeConversationContext(sb *strings.Builder, conv *conversation.State) {
	if transcript := conv.TranscriptWindow(recentTurnWindow); transcript != "" {
		sb.WriteString("RECENT CONVERSATION:\n")
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	if len(conv.ToolResults) > 0 {
		sb.WriteString("PREVIOUS TOOL RESULTS:\n")
		for _, tr := range conv.ToolResults {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", tr.ToolName, tr.Summary))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("LAST USER MESSAGE: %q\n\n", conv.LastMessage))
}

func buildBatchPrompt(conv *conversation.State, batch []guideline.Guideline) string {
	var sb strings.Builder
	sb.WriteString("You are a guideline applicability evaluator for a conversational assistant.\n")
	sb.WriteString("Decide, for EACH guideline below, whether its condition applies to the current conversation state.\n")
	sb.WriteString("Respond ONLY with JSON: {\"evaluations\": [{\"index\": <int>, \"applies\": <bool>, \"confidence\": <float 0..1>, \"reasoning\": \"<short>\"}]}\n")
	sb.WriteString("Include one entry per guideline, using the given 1-based index.\n\n")

	writeConversationContext(&sb, conv)

	sb.WriteString("GUIDELINES:\n")
	for i, gl := range batch {
		sb.WriteString(fmt.Sprintf("%d. condition: %s\n   action: %s\n   priority: %d, tags: [%s]\n",
			i+1, gl.Condition, gl.Action, gl.Priority, strings.Join(gl.Tags, ", ")))
	}
	sb.WriteString("\nAssistant JSON response: ")
	return sb.String()
}

func buildSinglePrompt(conv *conversation.State, gl guideline.Guideline) string {
	var sb strings.Builder
	sb.WriteString("You are a guideline applicability evaluator for a conversational assistant.\n")
	sb.WriteString("Decide whether the guideline's condition applies to the current conversation state.\n")
	sb.WriteString("Respond ONLY with JSON: {\"applies\": <bool>, \"confidence\": <float 0..1>, \"reasoning\": \"<short>\"}\n\n")

	writeConversationContext(&sb, conv)

	sb.WriteString(fmt.Sprintf("GUIDELINE:\ncondition: %s\naction: %s\npriority: %d, tags: [%s]\n",
		gl.Condition, gl.Action, gl.Priority, strings.Join(gl.Tags, ", ")))
	sb.WriteString("\nAssistant JSON response: ")
	return sb.String()
}

func (m *Matcher) requestBatch(ctx context.Context, conv *conversation.State, batch []guideline.Guideline) ([]evaluation, error) {
	var resp batchResponse
	if err := llm_client.DecodeInto(ctx, buildBatchPrompt(conv, batch), m.model, nil, &resp); err != nil {
		return nil, err
	}
	// A response that skips indices counts as malformed: the whole batch
	// degrades to individual evaluation.
	seen := make(map[int]bool, len(resp.Evaluations))
	for _, ev := range resp.Evaluations {
		seen[ev.Index] = true
	}
	for i := range batch {
		if !seen[i+1] {
			return nil, fmt.Errorf("%w: evaluation missing for index %d", llm_client.ErrMalformed, i+1)
		}
	}
	return resp.Evaluations, nil
}

func (m *Matcher) requestOne(ctx context.Context, conv *conversation.State, gl guideline.Guideline) (evaluation, error) {
	var ev evaluation
	if err := llm_client.DecodeInto(ctx, buildSinglePrompt(conv, gl), m.model, nil, &ev); err != nil {
		return evaluation{}, err
	}
	return ev, nil
}
