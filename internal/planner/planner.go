package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
	"concierge/internal/logger"
)

// WorkerCatalog is the slice of the worker registry the planner needs:
// rendering the catalog into the plan prompt and checking that a planned
// worker actually exists and is enabled.
type WorkerCatalog interface {
	PromptPart() string
	Has(id string) bool
}

// Planner turns a classified user message into an ordered,
// dependency-annotated task list.
type Planner struct {
	catalog WorkerCatalog
	model   string
}

func New(catalog WorkerCatalog, model string) *Planner {
	return &Planner{catalog: catalog, model: model}
}

func buildClassifyPrompt(conv *conversation.State) string {
	var sb strings.Builder
	sb.WriteString("You are a message classifier for a conversational assistant.\n")
	sb.WriteString("Decide whether answering the user requires running actions (tools, lookups, multi-step work) or plain text is enough.\n")
	sb.WriteString("Respond ONLY with JSON: {\"classification\": \"requires_action\"|\"text_only\", \"confidence\": <float 0..1>, \"reasoning\": \"<short>\", \"detected_intents\": [<strings>]}\n\n")
	if transcript := conv.TranscriptWindow(6); transcript != "" {
		sb.WriteString("RECENT CONVERSATION:\n")
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("USER MESSAGE: %q\n", conv.LastMessage))
	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func (p *Planner) buildPlanPrompt(conv *conversation.State, class *Classification, active []guideline.Match) string {
	var sb strings.Builder
	sb.WriteString("You are a task planner for a conversational assistant. Decompose the user's request into an ordered task list.\n")
	sb.WriteString("Respond ONLY with JSON:\n")
	sb.WriteString("{\"tasks\": [{\"id\": \"<slug>\", \"step\": <int>, \"description\": \"<text>\", \"type\": \"reasoning\"|\"context_search\"|\"worker_call\"|\"ask_to_user\", \"worker_id\": \"<id or empty>\", \"depends_on\": [<task ids>]}], \"critical_path\": <bool>, \"reasoning\": \"<short>\", \"estimated_complexity\": \"low\"|\"medium\"|\"high\"}\n\n")

	sb.WriteString("SEMANTICS:\n")
	sb.WriteString("- Tasks run SEQUENTIALLY in ascending step order.\n")
	sb.WriteString("- depends_on may only reference ids with a LOWER step.\n")
	sb.WriteString("- Use type=worker_call with a worker_id ONLY for workers listed below.\n")
	sb.WriteString("- Use type=ask_to_user when the request cannot proceed without a clarification from the user; it halts the cascade.\n")
	sb.WriteString("- Set critical_path=true when a failed worker makes every later task pointless.\n\n")

	sb.WriteString(fmt.Sprintf("CLASSIFICATION: %s (confidence %.2f). Intents: [%s]\n\n",
		class.Classification, class.Confidence, strings.Join(class.DetectedIntents, ", ")))

	if len(active) > 0 {
		sb.WriteString("ACTIVE GUIDELINES:\n")
		for _, m := range active {
			sb.WriteString(fmt.Sprintf("- [%s] when: %s → do: %s (priority %d)\n",
				m.Guideline.ID, m.Guideline.Condition, m.Guideline.Action, m.Guideline.Priority))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(p.catalog.PromptPart())

	if transcript := conv.TranscriptWindow(6); transcript != "" {
		sb.WriteString("\nRECENT CONVERSATION:\n")
		sb.WriteString(transcript)
	}
	sb.WriteString(fmt.Sprintf("\nUSER MESSAGE: %q\n", conv.LastMessage))
	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

// Classify runs the stage-1 structured request.
func (p *Planner) Classify(ctx context.Context, conv *conversation.State) (*Classification, error) {
	var class Classification
	if err := llm_client.DecodeInto(ctx, buildClassifyPrompt(conv), p.model, nil, &class); err != nil {
		return nil, fmt.Errorf("classify message: %w", err)
	}
	if class.Classification != ClassRequiresAction && class.Classification != ClassTextOnly {
		return nil, fmt.Errorf("%w: unknown classification %q", llm_client.ErrMalformed, class.Classification)
	}
	return &class, nil
}

// Plan classifies the message and, when action is required, generates the
// task list. text_only turns short-circuit with an empty direct-to-writer
// plan and spend no budget on a second request.
func (p *Planner) Plan(ctx context.Context, conv *conversation.State, active []guideline.Match) (*Classification, *ActionPlan, error) {
	class, err := p.Classify(ctx, conv)
	if err != nil {
		return nil, nil, err
	}

	if class.Classification == ClassTextOnly {
		return class, &ActionPlan{Tasks: nil, CriticalPath: false, DirectToWriter: true}, nil
	}

	var raw struct {
		Tasks []struct {
			ID          string   `json:"id"`
			Step        int      `json:"step"`
			Description string   `json:"description"`
			Type        string   `json:"type"`
			WorkerID    string   `json:"worker_id"`
			DependsOn   []string `json:"depends_on"`
		} `json:"tasks"`
		CriticalPath        bool   `json:"critical_path"`
		Reasoning           string `json:"reasoning"`
		EstimatedComplexity string `json:"estimated_complexity"`
	}
	if err := llm_client.DecodeInto(ctx, p.buildPlanPrompt(conv, class, active), p.model, nil, &raw); err != nil {
		return class, nil, fmt.Errorf("generate plan: %w", err)
	}

	plan := &ActionPlan{
		CriticalPath:        raw.CriticalPath,
		Reasoning:           raw.Reasoning,
		EstimatedComplexity: Complexity(raw.EstimatedComplexity),
	}
	for _, t := range raw.Tasks {
		task := &PlanTask{
			ID:          t.ID,
			Step:        t.Step,
			Description: t.Description,
			Type:        TaskType(t.Type),
			WorkerID:    t.WorkerID,
			DependsOn:   t.DependsOn,
			Status:      StatusPending,
		}
		if !task.Type.Valid() {
			task.Type = TaskReasoning
		}
		plan.Tasks = append(plan.Tasks, task)
	}

	p.normalize(plan)
	return class, plan, nil
}

// normalize enforces the worker-existence rule and step ordering. A plan must
// never reference a non-existent or disabled worker; such tasks are demoted
// to reasoning. Dangling depends_on ids are left for the executor's runtime
// guard.
func (p *Planner) normalize(plan *ActionPlan) {
	for _, t := range plan.Tasks {
		if t.Type != TaskWorkerCall {
			continue
		}
		if !p.catalog.Has(t.WorkerID) {
			logger.Log.Printf("[Planner] task %s references unknown/disabled worker %q, demoting to reasoning", t.ID, t.WorkerID)
			t.WorkerID = ""
			t.Type = TaskReasoning
		}
	}
	sort.SliceStable(plan.Tasks, func(a, b int) bool {
		return plan.Tasks[a].Step < plan.Tasks[b].Step
	})
}
