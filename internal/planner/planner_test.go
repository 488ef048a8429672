package planner

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/conversation"
	"concierge/internal/llm_client"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	handler func(prompt string) (string, error)
}

func (f *fakeProvider) Init(llm_client.Config) error        { return nil }
func (f *fakeProvider) DefaultModel() string                { return "fake" }
func (f *fakeProvider) AllowedModelOrDefault(string) string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	return f.GenerateJSON(context.Background(), prompt, "", nil)
}

func (f *fakeProvider) GenerateJSON(_ context.Context, prompt, _ string, _ any) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.handler(prompt)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func install(t *testing.T, handler func(prompt string) (string, error)) *fakeProvider {
	t.Helper()
	f := &fakeProvider{handler: handler}
	llm_client.SetActive(f, "fake")
	t.Cleanup(func() { llm_client.SetActive(nil, "") })
	return f
}

type stubCatalog struct {
	ids map[string]bool
}

func (c stubCatalog) Has(id string) bool { return c.ids[id] }

func (c stubCatalog) PromptPart() string {
	return "AVAILABLE WORKERS:\n- `search_worker`: searches listings.\n- `visit_worker`: books visits.\n"
}

func testPlanner() *Planner {
	return New(stubCatalog{ids: map[string]bool{
		"search_worker":   true,
		"visit_worker":    true,
		"support_worker":  true,
		"feedback_worker": true,
	}}, "fake")
}

func conv(msg string) *conversation.State {
	return &conversation.State{SessionID: "s1", LastMessage: msg}
}

const textOnlyClass = `{"classification": "text_only", "confidence": 0.95, "reasoning": "greeting"}`
const actionClass = `{"classification": "requires_action", "confidence": 0.9, "reasoning": "needs search", "detected_intents": ["search"]}`

func TestPlanTextOnlyShortCircuits(t *testing.T) {
	f := install(t, func(prompt string) (string, error) {
		require.Contains(t, prompt, "message classifier", "text_only must never reach the plan prompt")
		return textOnlyClass, nil
	})

	class, plan, err := testPlanner().Plan(context.Background(), conv("hola!"), nil)
	require.NoError(t, err)

	assert.Equal(t, ClassTextOnly, class.Classification)
	assert.True(t, plan.DirectToWriter)
	assert.False(t, plan.CriticalPath)
	assert.Empty(t, plan.Tasks)
	assert.Equal(t, 1, f.callCount(), "no second request for text_only")
}

func TestPlanGeneratesOrderedTasks(t *testing.T) {
	install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "message classifier") {
			return actionClass, nil
		}
		// Steps deliberately out of order.
		return `{
			"tasks": [
				{"id": "task_2", "step": 2, "description": "book the visit", "type": "worker_call", "worker_id": "visit_worker", "depends_on": ["task_1"]},
				{"id": "task_1", "step": 1, "description": "find listings", "type": "worker_call", "worker_id": "search_worker"}
			],
			"critical_path": true,
			"reasoning": "search then book",
			"estimated_complexity": "medium"
		}`, nil
	})

	_, plan, err := testPlanner().Plan(context.Background(), conv("find a flat and book a visit"), nil)
	require.NoError(t, err)

	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "task_1", plan.Tasks[0].ID)
	assert.Equal(t, "task_2", plan.Tasks[1].ID)
	assert.Equal(t, StatusPending, plan.Tasks[0].Status)
	assert.True(t, plan.CriticalPath)
	assert.Equal(t, ComplexityMedium, plan.EstimatedComplexity)
	assert.Equal(t, []string{"task_1"}, plan.Tasks[1].DependsOn)
}

func TestPlanDemotesUnknownWorker(t *testing.T) {
	install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "message classifier") {
			return actionClass, nil
		}
		return `{
			"tasks": [
				{"id": "task_1", "step": 1, "description": "call something", "type": "worker_call", "worker_id": "nonexistent_worker"}
			],
			"critical_path": false
		}`, nil
	})

	_, plan, err := testPlanner().Plan(context.Background(), conv("do the thing"), nil)
	require.NoError(t, err)

	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, TaskReasoning, plan.Tasks[0].Type)
	assert.Empty(t, plan.Tasks[0].WorkerID)
}

func TestPlanDemotesDisabledWorker(t *testing.T) {
	install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "message classifier") {
			return actionClass, nil
		}
		return `{
			"tasks": [
				{"id": "task_1", "step": 1, "description": "use disabled", "type": "worker_call", "worker_id": "off_worker"}
			]
		}`, nil
	})

	p := New(stubCatalog{ids: map[string]bool{}}, "fake")

	_, plan, err := p.Plan(context.Background(), conv("msg"), nil)
	require.NoError(t, err)
	assert.Equal(t, TaskReasoning, plan.Tasks[0].Type)
}

func TestPlanInvalidTaskTypeBecomesReasoning(t *testing.T) {
	install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "message classifier") {
			return actionClass, nil
		}
		return `{
			"tasks": [
				{"id": "task_1", "step": 1, "description": "weird", "type": "teleport"}
			]
		}`, nil
	})

	_, plan, err := testPlanner().Plan(context.Background(), conv("msg"), nil)
	require.NoError(t, err)
	assert.Equal(t, TaskReasoning, plan.Tasks[0].Type)
}

func TestClassifyRejectsUnknownClass(t *testing.T) {
	install(t, func(string) (string, error) {
		return `{"classification": "maybe", "confidence": 0.5}`, nil
	})

	_, err := testPlanner().Classify(context.Background(), conv("msg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm_client.ErrMalformed)
}

func TestClassifyStripsCodeFences(t *testing.T) {
	install(t, func(string) (string, error) {
		return "```json\n" + textOnlyClass + "\n```", nil
	})

	class, err := testPlanner().Classify(context.Background(), conv("hola"))
	require.NoError(t, err)
	assert.Equal(t, ClassTextOnly, class.Classification)
}
