package worker

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/llm_client"
	"concierge/internal/tools"
)

// Validator scores a generation 0..10. Feedback, when present, drives the
// single retry.
type Validator interface {
	Validate(ctx context.Context, def Definition, gen Generation, in Input) (score float64, feedback string, err error)
}

// llmValidator is the lightweight scoring pass: one cheap structured call
// over the response, the executed tool calls, and the tool schemas.
type llmValidator struct {
	model   string
	gateway *tools.Gateway
}

func associated(def Definition, guidelineID string) bool {
	for _, id := range def.AssociatedGuidelineIDs {
		if id == guidelineID {
			return true
		}
	}
	return false
}

func (v *llmValidator) buildPrompt(def Definition, gen Generation, in Input) string {
	var sb strings.Builder
	sb.WriteString("You are a response validator for a conversational assistant worker.\n")
	sb.WriteString("Score how well the worker's output fulfills its task and guidelines, 0 (useless) to 10 (perfect).\n")
	sb.WriteString("Respond ONLY with JSON: {\"score\": <float 0..10>, \"feedback\": \"<concrete fix instructions, or empty if none>\"}\n\n")

	sb.WriteString(fmt.Sprintf("WORKER: %s — %s\n", def.ID, def.Description))
	sb.WriteString(fmt.Sprintf("TASK: %s\n\n", in.Task.Description))

	// Only criteria from this worker's own guidelines; other active
	// guidelines belong to other workers and must not skew the score.
	var criteria []string
	for _, m := range in.ActiveGuidelines {
		if !associated(def, m.Guideline.ID) {
			continue
		}
		for _, c := range m.Guideline.ValidationCriteria {
			criteria = append(criteria, fmt.Sprintf("- %s (weight %d): %s", c.Name, c.Weight, c.Description))
		}
	}
	if len(criteria) > 0 {
		sb.WriteString("VALIDATION CRITERIA:\n")
		sb.WriteString(strings.Join(criteria, "\n"))
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("WORKER RESPONSE:\n%s\n\n", gen.Response))

	if v.gateway != nil && len(def.ToolNames) > 0 {
		sb.WriteString(v.gateway.PromptPart(def.ToolNames))
		sb.WriteString("\n")
	}

	if len(gen.ToolCalls) > 0 {
		sb.WriteString("TOOLS EXECUTED:\n")
		for _, tc := range gen.ToolCalls {
			if tc.Error != "" {
				sb.WriteString(fmt.Sprintf("- %s args=%v → ERROR: %s\n", tc.ToolName, tc.Args, tc.Error))
			} else {
				sb.WriteString(fmt.Sprintf("- %s args=%v → %v\n", tc.ToolName, tc.Args, tc.Result))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func (v *llmValidator) Validate(ctx context.Context, def Definition, gen Generation, in Input) (float64, string, error) {
	var out struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := llm_client.DecodeInto(ctx, v.buildPrompt(def, gen, in), v.model, nil, &out); err != nil {
		return 0, "", fmt.Errorf("validate worker %s: %w", def.ID, err)
	}
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 10 {
		out.Score = 10
	}
	return out.Score, strings.TrimSpace(out.Feedback), nil
}
