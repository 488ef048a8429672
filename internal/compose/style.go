package compose

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/guideline"
	"concierge/internal/llm_client"
)

type StyleResult struct {
	Response     string  `json:"response"`
	Score        float64 `json:"score"`
	WasCorrected bool    `json:"was_corrected"`
}

// StyleValidator runs once after the writer, scoring the reply's tone and
// rewriting it when it drifts off the guidelines.
type StyleValidator interface {
	ValidateAndCorrect(ctx context.Context, response, userMessage string, active []guideline.Match, contextVars map[string]string) (*StyleResult, error)
}

// LLMStyleValidator is the default post-hoc corrector.
type LLMStyleValidator struct {
	Model string
}

func (s *LLMStyleValidator) buildPrompt(response, userMessage string, active []guideline.Match, contextVars map[string]string) string {
	var sb strings.Builder
	sb.WriteString("You are a style corrector for a conversational assistant's replies.\n")
	sb.WriteString("Score the draft reply 0..10 for tone, clarity and guideline fit. If it needs fixing, return a corrected version; otherwise return it unchanged.\n")
	sb.WriteString("Respond ONLY with JSON: {\"response\": \"<final reply>\", \"score\": <float 0..10>, \"was_corrected\": <bool>}\n\n")

	if len(active) > 0 {
		sb.WriteString("GUIDELINES IN EFFECT:\n")
		for _, m := range active {
			sb.WriteString(fmt.Sprintf("- %s\n", m.Guideline.Action))
		}
		sb.WriteString("\n")
	}
	for k, v := range contextVars {
		sb.WriteString(fmt.Sprintf("CONTEXT %s: %s\n", k, v))
	}

	sb.WriteString(fmt.Sprintf("\nCUSTOMER MESSAGE: %q\n", userMessage))
	sb.WriteString(fmt.Sprintf("DRAFT REPLY: %q\n\n", response))
	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func (s *LLMStyleValidator) ValidateAndCorrect(ctx context.Context, response, userMessage string, active []guideline.Match, contextVars map[string]string) (*StyleResult, error) {
	var out StyleResult
	if err := llm_client.DecodeInto(ctx, s.buildPrompt(response, userMessage, active, contextVars), s.Model, nil, &out); err != nil {
		return nil, fmt.Errorf("style validation: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		// Never let the corrector eat the reply.
		out.Response = response
		out.WasCorrected = false
	}
	return &out, nil
}
