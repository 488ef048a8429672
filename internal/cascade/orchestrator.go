package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"concierge/internal/compose"
	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/logger"
	"concierge/internal/matcher"
	"concierge/internal/metrics"
	"concierge/internal/planner"
	"concierge/internal/worker"
)

const (
	// FallbackCritical is the user-facing text when a critical-path cascade
	// aborts. Users always get natural language, never a raw error.
	FallbackCritical = "I'm sorry, I couldn't finish handling that request. Could you try again in a moment?"
	// FallbackGeneric covers any unexpected pipeline failure.
	FallbackGeneric = "Something went wrong on my side while working on your message. Please try again."
)

// Metadata carries the operator-facing diagnostics of one cascade run.
type Metadata struct {
	Classification        *planner.Classification `json:"classification,omitempty"`
	Plan                  *planner.ActionPlan     `json:"plan,omitempty"`
	WorkerResults         []*worker.Result        `json:"worker_results,omitempty"`
	WriterIterations      int                     `json:"writer_iterations"`
	StyleValidationPassed bool                    `json:"style_validation_passed"`
	TotalExecutionTimeMs  int64                   `json:"total_execution_time_ms"`
	ExecutedGuidelines    []string                `json:"executed_guidelines,omitempty"`
	Metrics               *metrics.CascadeMetrics `json:"metrics,omitempty"`
}

// Result is the envelope returned for every message. Success=false still
// carries a natural-language Response; Error is for operators only.
type Result struct {
	Success  bool     `json:"success"`
	Response string   `json:"response"`
	Metadata Metadata `json:"metadata"`
	Error    string   `json:"error,omitempty"`
}

// Orchestrator wires matcher → planner → executor → writer → style
// validator into one message-processing cycle.
type Orchestrator struct {
	matcher  *matcher.Matcher
	planner  *planner.Planner
	executor *Executor
	writer   compose.Writer
	style    compose.StyleValidator

	threshold    float64
	batchSize    int
	styleEnabled bool
}

type Option func(*Orchestrator)

func WithThreshold(t float64) Option { return func(o *Orchestrator) { o.threshold = t } }
func WithBatchSize(n int) Option     { return func(o *Orchestrator) { o.batchSize = n } }
func WithStyleValidation(enabled bool) Option {
	return func(o *Orchestrator) { o.styleEnabled = enabled }
}
func WithWriter(w compose.Writer) Option        { return func(o *Orchestrator) { o.writer = w } }
func WithStyle(s compose.StyleValidator) Option { return func(o *Orchestrator) { o.style = s } }

func NewOrchestrator(m *matcher.Matcher, p *planner.Planner, e *Executor, model string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher:      m,
		planner:      p,
		executor:     e,
		writer:       &compose.LLMWriter{Model: model},
		style:        &compose.LLMStyleValidator{Model: model},
		threshold:    matcher.DefaultThreshold,
		batchSize:    matcher.DefaultBatchSize,
		styleEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs one full cascade for the conversation's last message. It
// never panics and never returns a raw error to the end user.
func (o *Orchestrator) Execute(ctx context.Context, conv *conversation.State, glossaryContext, ragContext string) (res *Result) {
	start := time.Now()
	mm := &metrics.CascadeMetrics{CascadeID: uuid.New().String()[:8], Start: time.Now()}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Printf("[Orchestrator] recovered: %v", rec)
			res = &Result{
				Success:  false,
				Response: FallbackGeneric,
				Error:    fmt.Sprintf("orchestrator panic: %v", rec),
			}
		}
		mm.End = time.Now()
		mm.DurationMs = mm.End.Sub(mm.Start).Milliseconds()
		mm.Succeeded = res.Success
		res.Metadata.Metrics = mm
		res.Metadata.TotalExecutionTimeMs = time.Since(start).Milliseconds()
	}()

	active := o.matcher.Match(ctx, conv, o.threshold, o.batchSize)

	class, plan, err := o.planner.Plan(ctx, conv, active)
	if err != nil {
		return &Result{
			Success:  false,
			Response: FallbackGeneric,
			Metadata: Metadata{Classification: class, ExecutedGuidelines: guideline.IDs(active)},
			Error:    err.Error(),
		}
	}

	meta := Metadata{
		Classification:     class,
		Plan:               plan,
		ExecutedGuidelines: guideline.IDs(active),
	}

	var outcome *Outcome
	if !plan.DirectToWriter {
		outcome = o.executor.Run(ctx, plan, conv, active, mm)
		meta.WorkerResults = outcome.WorkerResults

		// Critical-path abort: the writer is never consulted; the caller
		// gets the fixed fallback plus full diagnostics. Aborted covers the
		// walk-halting failures that never produced a worker result.
		if plan.CriticalPath && (outcome.Aborted || anyFailed(outcome.WorkerResults)) {
			return &Result{
				Success:  false,
				Response: FallbackCritical,
				Metadata: meta,
				Error:    "critical path aborted: worker failure",
			}
		}
	}

	win := compose.WriterInput{
		Conversation:     conv,
		ActiveGuidelines: active,
		Plan:             plan,
		GlossaryContext:  glossaryContext,
		RAGContext:       ragContext,
	}
	if outcome != nil {
		win.WorkerResults = outcome.WorkerResults
	}

	wout, err := o.writer.Compose(ctx, win)
	if err != nil {
		return &Result{
			Success:  false,
			Response: FallbackGeneric,
			Metadata: meta,
			Error:    fmt.Sprintf("writer: %v", err),
		}
	}
	meta.WriterIterations = 1

	response := wout.Response
	if o.styleEnabled {
		styled, serr := o.style.ValidateAndCorrect(ctx, response, conv.LastMessage, active, conv.ContextVars)
		if serr != nil {
			logger.Log.Printf("[Orchestrator] style validation skipped: %v", serr)
			meta.StyleValidationPassed = false
		} else {
			response = styled.Response
			meta.StyleValidationPassed = !styled.WasCorrected
		}
	}

	return &Result{Success: true, Response: response, Metadata: meta}
}

func anyFailed(results []*worker.Result) bool {
	for _, r := range results {
		if r.Status == worker.StatusFailed {
			return true
		}
	}
	return false
}
