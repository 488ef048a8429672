package matcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
)

// fakeProvider routes prompts to a scripted handler and counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	handler func(prompt string) (string, error)
}

func (f *fakeProvider) Init(llm_client.Config) error        { return nil }
func (f *fakeProvider) DefaultModel() string                { return "fake" }
func (f *fakeProvider) AllowedModelOrDefault(string) string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	return f.GenerateJSON(nil, prompt, "", nil)
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

func testStore(gs ...guideline.Guideline) *guideline.Store {
	return guideline.NewStore(gs)
}

func gl(id string, priority int) guideline.Guideline {
	return guideline.Guideline{ID: id, Condition: "when " + id, Action: "do " + id, Priority: priority, Enabled: true}
}

func testConv(msg string) *conversation.State {
	return &conversation.State{SessionID: "s1", LastMessage: msg}
}

func batchJSON(evals ...string) string {
	return fmt.Sprintf(`{"evaluations": [%s]}`, strings.Join(evals, ","))
}

func eval(index int, applies bool, confidence float64) string {
	return fmt.Sprintf(`{"index": %d, "applies": %t, "confidence": %v, "reasoning": "r"}`, index, applies, confidence)
}

func TestMatchFiltersAndRanks(t *testing.T) {
	install(t, func(string) (string, error) {
		return batchJSON(
			eval(1, true, 0.9),   // low priority, high score
			eval(2, true, 0.7),   // high priority
			eval(3, true, 0.5),   // below threshold
			eval(4, false, 0.99), // applies=false scores 0
		), nil
	})

	store := testStore(gl("a", 5), gl("b", 9), gl("c", 5), gl("d", 9))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("find me a flat"), 0.6, 5)

	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].Guideline.ID, "higher priority ranks first")
	assert.Equal(t, "a", matches[1].Guideline.ID)
	assert.Equal(t, 0.7, matches[0].Score)
	assert.Equal(t, 0.9, matches[1].Score)
}

func TestMatchClampsConfidence(t *testing.T) {
	install(t, func(string) (string, error) {
		return batchJSON(eval(1, true, 1.7)), nil
	})

	store := testStore(gl("a", 5))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("hola"), 0.0, 5)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestMatchCachesPerSessionAndMessage(t *testing.T) {
	f := install(t, func(string) (string, error) {
		return batchJSON(eval(1, true, 0.8)), nil
	})

	store := testStore(gl("a", 5))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	conv := testConv("same message")
	first := m.Match(context.Background(), conv, 0.6, 5)
	second := m.Match(context.Background(), conv, 0.6, 5)

	assert.Equal(t, 1, f.callCount(), "second identical match must hit the cache")
	assert.Equal(t, first, second)

	// A guideline mutation invalidates every cached ranking.
	store.Add(gl("b", 7))
	m.Match(context.Background(), conv, 0.6, 5)
	assert.Greater(t, f.callCount(), 1, "store change must purge the cache")
}

func TestMatchBatchFailureFallsBackToIndividual(t *testing.T) {
	f := install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "for EACH guideline") {
			return "not json at all", nil
		}
		return `{"applies": true, "confidence": 0.85, "reasoning": "single"}`, nil
	})

	store := testStore(gl("a", 5), gl("b", 5))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("msg"), 0.6, 5)

	require.Len(t, matches, 2)
	for _, match := range matches {
		assert.Equal(t, 0.85, match.Score)
	}
	// 1 failed batch call + 2 individual calls.
	assert.Equal(t, 3, f.callCount())
}

func TestMatchIncompleteBatchCountsAsMalformed(t *testing.T) {
	install(t, func(prompt string) (string, error) {
		if strings.Contains(prompt, "for EACH guideline") {
			// Second index missing: the whole batch must degrade.
			return batchJSON(eval(1, true, 0.9)), nil
		}
		return `{"applies": true, "confidence": 0.75, "reasoning": "single"}`, nil
	})

	store := testStore(gl("a", 5), gl("b", 5))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("msg"), 0.6, 5)

	require.Len(t, matches, 2)
	assert.Equal(t, 0.75, matches[0].Score)
	assert.Equal(t, 0.75, matches[1].Score)
}

func TestMatchNeverErrorsWhenEverythingFails(t *testing.T) {
	install(t, func(string) (string, error) {
		return "", fmt.Errorf("backend down")
	})

	store := testStore(gl("a", 5), gl("b", 5))
	m, err := New(store, "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("msg"), 0.6, 5)
	assert.Empty(t, matches, "zero-scored guidelines fall under threshold")
}

func TestMatchEmptyStore(t *testing.T) {
	f := install(t, func(string) (string, error) { return "{}", nil })

	m, err := New(testStore(), "fake", 0)
	require.NoError(t, err)

	matches := m.Match(context.Background(), testConv("msg"), 0.6, 5)
	assert.Empty(t, matches)
	assert.Equal(t, 0, f.callCount())
}

func TestSplitBatches(t *testing.T) {
	gs := []guideline.Guideline{gl("a", 1), gl("b", 1), gl("c", 1), gl("d", 1), gl("e", 1)}

	batches := splitBatches(gs, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}
