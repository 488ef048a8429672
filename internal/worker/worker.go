package worker

import (
	"context"
	"time"

	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/logger"
	"concierge/internal/planner"
	"concierge/internal/tools"
)

const (
	activationSkipScore = 10.0
	degradedScore       = 5.0
)

// Input is everything a worker sees for one task.
type Input struct {
	Task             *planner.PlanTask
	Conversation     *conversation.State
	ActiveGuidelines []guideline.Match
	PreviousResults  map[string]string
	Plan             *planner.ActionPlan
	ContextVars      map[string]string
}

// Generation is the output of one type-specific generation attempt. Response
// may be partially filled even when the attempt errored (text produced before
// a tool call blew up).
type Generation struct {
	Response  string
	ToolCalls []ToolExecution
}

// GenerateFunc runs one generation attempt. feedback is empty on the first
// attempt and carries validator feedback on the single retry.
type GenerateFunc func(ctx context.Context, in Input, feedback string) (Generation, error)

// Worker executes one task under the shared contract: activation guard,
// first attempt, validation, at most one feedback-driven retry.
type Worker struct {
	def       Definition
	gateway   *tools.Gateway
	validator Validator
	generate  GenerateFunc
}

func New(def Definition, gateway *tools.Gateway, model string) *Worker {
	w := &Worker{
		def:       def,
		gateway:   gateway,
		validator: &llmValidator{model: model, gateway: gateway},
	}
	gen := &llmGenerator{def: def, gateway: gateway, model: model}
	w.generate = gen.run
	return w
}

func (w *Worker) Definition() Definition { return w.def }

// WithGenerate overrides the generation step. Tests use this to make
// attempts deterministic.
func (w *Worker) WithGenerate(fn GenerateFunc) *Worker {
	w.generate = fn
	return w
}

// WithValidator overrides the validation step.
func (w *Worker) WithValidator(v Validator) *Worker {
	w.validator = v
	return w
}

func (w *Worker) activatedGuidelines(in Input) []string {
	var out []string
	for _, id := range w.def.AssociatedGuidelineIDs {
		for _, m := range in.ActiveGuidelines {
			if m.Guideline.ID == id {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

func (w *Worker) criteriaNames(in Input) []string {
	var out []string
	for _, m := range in.ActiveGuidelines {
		for _, id := range w.def.AssociatedGuidelineIDs {
			if m.Guideline.ID != id {
				continue
			}
			for _, c := range m.Guideline.ValidationCriteria {
				out = append(out, c.Name)
			}
		}
	}
	return out
}

// Execute never returns an error; every failure mode is folded into the
// Result per the fail-open policy: a non-empty response is surfaced as
// success, with low scores carried in validation metadata for the writer.
func (w *Worker) Execute(ctx context.Context, in Input) *Result {
	start := time.Now()
	res := &Result{WorkerID: w.def.ID, Status: StatusSuccess}
	defer func() {
		res.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()
	}()

	activated := w.activatedGuidelines(in)
	if len(activated) == 0 {
		// None of this worker's guidelines are active: trivial success,
		// zero iterations, no generation spent.
		res.Validation = Validation{Passed: true, Score: activationSkipScore, Iterations: 0}
		return res
	}
	res.Metadata.ActivatedGuidelines = activated
	criteria := w.criteriaNames(in)

	// Attempt 1.
	gen, err := w.generate(ctx, in, "")
	res.Response = gen.Response
	res.ToolsExecuted = gen.ToolCalls
	if err != nil {
		return w.concludeException(res, err, gen.Response, 1, criteria)
	}

	score, feedback, verr := w.validator.Validate(ctx, w.def, gen, in)
	if verr != nil {
		logger.Log.Printf("[Worker %s] validation unavailable: %v", w.def.ID, verr)
		score, feedback = 0, ""
	}

	if score >= w.def.ValidationThreshold {
		res.Validation = Validation{Passed: true, Score: score, Iterations: 1, GuidelinesCriteria: criteria}
		return res
	}

	if feedback == "" {
		// No guidance to act on; keep whatever text we have.
		res.Validation = Validation{Passed: false, Score: score, Iterations: 1, GuidelinesCriteria: criteria}
		if gen.Response == "" {
			res.Status = StatusFailed
		}
		return res
	}

	// Exactly one retry, with the validator's feedback injected.
	gen2, err := w.generate(ctx, in, feedback)
	if gen2.Response != "" {
		res.Response = gen2.Response
	}
	res.ToolsExecuted = append(res.ToolsExecuted, gen2.ToolCalls...)
	if err != nil {
		return w.concludeException(res, err, res.Response, 2, criteria)
	}

	score2, feedback2, verr := w.validator.Validate(ctx, w.def, Generation{Response: res.Response, ToolCalls: res.ToolsExecuted}, in)
	if verr != nil {
		logger.Log.Printf("[Worker %s] revalidation unavailable: %v", w.def.ID, verr)
		score2, feedback2 = score, feedback
	}

	res.Validation = Validation{
		Passed:             score2 >= w.def.ValidationThreshold,
		Score:              score2,
		Iterations:         2,
		Feedback:           feedback2,
		GuidelinesCriteria: criteria,
	}
	if res.Response == "" {
		res.Status = StatusFailed
	}
	return res
}

// concludeException applies the degraded-success rule: partial text survives
// a generation exception with score 5; an empty response fails with score 0.
func (w *Worker) concludeException(res *Result, err error, response string, iterations int, criteria []string) *Result {
	res.Error = err.Error()
	if response != "" {
		res.Status = StatusSuccess
		res.Validation = Validation{Passed: false, Score: degradedScore, Iterations: iterations, GuidelinesCriteria: criteria}
		return res
	}
	res.Status = StatusFailed
	res.Validation = Validation{Passed: false, Score: 0, Iterations: iterations, GuidelinesCriteria: criteria}
	return res
}
