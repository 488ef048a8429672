package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"concierge/internal/llm_client"
	"concierge/internal/tools"
)

// llmGenerator is the default type-specific generation step: one structured
// request produces the response text plus the tool invocations to run, then
// the allowed tools execute in order.
type llmGenerator struct {
	def     Definition
	gateway *tools.Gateway
	model   string
}

type rawToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type rawGeneration struct {
	Response  string        `json:"response"`
	ToolCalls []rawToolCall `json:"tool_calls"`
}

func (g *llmGenerator) buildPrompt(in Input, feedback string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are the %q worker of a conversational assistant. %s\n", g.def.Name, g.def.Description))
	sb.WriteString("Carry out the task below. Respond ONLY with JSON: {\"response\": \"<text for the customer-facing reply>\", \"tool_calls\": [{\"tool\": \"<name>\", \"args\": {}}]}\n")
	sb.WriteString("Only call the tools listed. tool_calls may be empty.\n\n")

	sb.WriteString(fmt.Sprintf("TASK: %s\n\n", in.Task.Description))

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

	if len(in.ContextVars) > 0 {
		sb.WriteString("CONTEXT:\n")
		for k, v := range in.ContextVars {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", k, v))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(g.gateway.PromptPart(g.def.ToolNames))

	if transcript := in.Conversation.TranscriptWindow(6); transcript != "" {
		sb.WriteString("\nRECENT CONVERSATION:\n")
		sb.WriteString(transcript)
	}
	sb.WriteString(fmt.Sprintf("\nUSER MESSAGE: %q\n", in.Conversation.LastMessage))

	if feedback != "" {
		sb.WriteString("\nYOUR PREVIOUS ATTEMPT WAS REJECTED. VALIDATOR FEEDBACK:\n")
		sb.WriteString(feedback)
		sb.WriteString("\nAddress the feedback in this attempt.\n")
	}
	sb.WriteString("\nAssistant JSON response: ")
	return sb.String()
}

func (g *llmGenerator) allowed(tool string) bool {
	for _, n := range g.def.ToolNames {
		if n == tool {
			return true
		}
	}
	return false
}

// run returns whatever text was produced even when a later tool call errors,
// so the contract's degraded-success rule has something to salvage.
func (g *llmGenerator) run(ctx context.Context, in Input, feedback string) (Generation, error) {
	var raw rawGeneration
	if err := llm_client.DecodeInto(ctx, g.buildPrompt(in, feedback), g.model, nil, &raw); err != nil {
		return Generation{}, fmt.Errorf("worker %s generation: %w", g.def.ID, err)
	}

	gen := Generation{Response: strings.TrimSpace(raw.Response)}
	for _, call := range raw.ToolCalls {
		exec := ToolExecution{ToolName: call.Tool, Args: call.Args, Timestamp: time.Now().UTC()}
		if !g.allowed(call.Tool) {
			exec.Error = fmt.Sprintf("tool %q not allowed for worker %s", call.Tool, g.def.ID)
			gen.ToolCalls = append(gen.ToolCalls, exec)
			continue
		}
		out, err := g.gateway.Execute(ctx, call.Tool, call.Args)
		if err != nil {
			exec.Error = err.Error()
			gen.ToolCalls = append(gen.ToolCalls, exec)
			return gen, fmt.Errorf("worker %s tool %s: %w", g.def.ID, call.Tool, err)
		}
		exec.Result = out
		gen.ToolCalls = append(gen.ToolCalls, exec)
	}
	return gen, nil
}
