package matcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/logger"
)

const (
	DefaultBatchSize = 5
	DefaultThreshold = 0.6

	defaultCacheSize = 256
	cacheKeyMsgLen   = 80

	// Reason recorded when both the batch call and the per-guideline
	// fallback failed. Matching never surfaces an error to the caller.
	fallbackReason = "evaluation unavailable, guideline skipped"
)

// Matcher scores every enabled guideline against the current conversation
// and returns the matches above threshold, ranked by priority then score.
type Matcher struct {
	store *guideline.Store
	model string

	mu    sync.Mutex
	cache *lru.Cache[string, []guideline.Match]
}

func New(store *guideline.Store, model string, cacheSize int) (*Matcher, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := lru.New[string, []guideline.Match](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("matcher cache: %w", err)
	}
	m := &Matcher{store: store, model: model, cache: c}
	// Any guideline mutation drops every cached ranking.
	store.OnChange(m.Purge)
	return m, nil
}

func (m *Matcher) Purge() {
	m.mu.Lock()
	m.cache.Purge()
	m.mu.Unlock()
}

func (m *Matcher) cacheKey(conv *conversation.State) string {
	msg := conv.LastMessage
	if len(msg) > cacheKeyMsgLen {
		msg = msg[:cacheKeyMsgLen]
	}
	return fmt.Sprintf("%s|%d|%s", conv.SessionID, m.store.Version(), msg)
}

// Match evaluates the enabled guideline set in concurrent fixed-size batches.
// Identical (session, last message) pairs return the cached ranking without
// re-invoking the service.
func (m *Matcher) Match(ctx context.Context, conv *conversation.State, threshold float64, batchSize int) []guideline.Match {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	key := m.cacheKey(conv)
	m.mu.Lock()
	if cached, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		out := make([]guideline.Match, len(cached))
		copy(out, cached)
		return out
	}
	m.mu.Unlock()

	enabled := m.store.Enabled()
	if len(enabled) == 0 {
		return nil
	}

	batches := splitBatches(enabled, batchSize)
	results := make([][]guideline.Match, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = m.evaluateBatch(gctx, conv, batch)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; degraded batches score 0

	var merged []guideline.Match
	for _, r := range results {
		for _, match := range r {
			if match.Score >= threshold {
				merged = append(merged, match)
			}
		}
	}

	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].Guideline.Priority != merged[b].Guideline.Priority {
			return merged[a].Guideline.Priority > merged[b].Guideline.Priority
		}
		return merged[a].Score > merged[b].Score
	})

	m.mu.Lock()
	m.cache.Add(key, merged)
	m.mu.Unlock()
	return merged
}

func splitBatches(gs []guideline.Guideline, size int) [][]guideline.Guideline {
	var out [][]guideline.Guideline
	for start := 0; start < len(gs); start += size {
		end := min(start+size, len(gs))
		out = append(out, gs[start:end])
	}
	return out
}

// evaluateBatch issues one structured request for the whole batch. On any
// failure it degrades to per-guideline evaluation, and from there to a zero
// score with a fixed reason.
func (m *Matcher) evaluateBatch(ctx context.Context, conv *conversation.State, batch []guideline.Guideline) []guideline.Match {
	evals, err := m.requestBatch(ctx, conv, batch)
	if err == nil {
		return applyEvaluations(batch, evals)
	}
	logger.Log.Printf("[Matcher] batch of %d fell back to individual evaluation: %v", len(batch), err)

	out := make([]guideline.Match, 0, len(batch))
	for _, gl := range batch {
		ev, err := m.requestOne(ctx, conv, gl)
		if err != nil {
			out = append(out, guideline.Match{Guideline: gl, Score: 0, Reason: fallbackReason})
			continue
		}
		out = append(out, toMatch(gl, ev))
	}
	return out
}

func toMatch(gl guideline.Guideline, ev evaluation) guideline.Match {
	score := 0.0
	if ev.Applies {
		score = clamp01(ev.Confidence)
	}
	return guideline.Match{Guideline: gl, Score: score, Reason: ev.Reasoning}
}

func applyEvaluations(batch []guideline.Guideline, evals []evaluation) []guideline.Match {
	byIndex := make(map[int]evaluation, len(evals))
	for _, ev := range evals {
		byIndex[ev.Index] = ev
	}
	out := make([]guideline.Match, 0, len(batch))
	for i, gl := range batch {
		ev, ok := byIndex[i+1] // indices are 1-based in the prompt
		if !ok {
			out = append(out, guideline.Match{Guideline: gl, Score: 0, Reason: fallbackReason})
			continue
		}
		out = append(out, toMatch(gl, ev))
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
