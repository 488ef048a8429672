package cascade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"concierge/internal/agent"
	"concierge/internal/conversation"
	"concierge/internal/guideline"
	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/planner"
	"concierge/internal/tools"
	"concierge/internal/worker"
)

// DependencyMode controls what "dependency met" means for a worker_call task.
type DependencyMode string

const (
	// DependencyPresence: a dependency is met when the upstream task left a
	// non-empty result text, even if its status is failed. This matches the
	// reference behavior.
	DependencyPresence DependencyMode = "presence"
	// DependencySuccess: a dependency is met only when the upstream task
	// completed successfully.
	DependencySuccess DependencyMode = "success"
)

const (
	defaultTaskTimeout = 60 * time.Second

	errDependenciesNotCompleted = "Dependencies not completed"
)

// Executor walks a plan's tasks in ascending step order. One linear pass:
// tasks that do not depend on each other still run strictly in author
// order, never concurrently.
type Executor struct {
	registry    *worker.Registry
	workers     map[string]*worker.Worker
	reasoner    agent.Reasoner
	searcher    agent.ContextSearcher
	depMode     DependencyMode
	taskTimeout time.Duration
}

func NewExecutor(registry *worker.Registry, gateway *tools.Gateway, model string) *Executor {
	e := &Executor{
		registry:    registry,
		workers:     make(map[string]*worker.Worker),
		reasoner:    &agent.Reasoning{Model: model},
		searcher:    &agent.ContextSearch{Model: model},
		depMode:     DependencyPresence,
		taskTimeout: defaultTaskTimeout,
	}
	for _, def := range registry.Definitions() {
		if !def.Enabled {
			continue
		}
		e.workers[def.ID] = worker.New(def, gateway, model)
	}
	return e
}

func (e *Executor) WithDependencyMode(m DependencyMode) *Executor {
	if m == DependencySuccess {
		e.depMode = DependencySuccess
	} else {
		e.depMode = DependencyPresence
	}
	return e
}

func (e *Executor) WithTaskTimeout(d time.Duration) *Executor {
	if d > 0 {
		e.taskTimeout = d
	}
	return e
}

// SetWorker replaces a worker instance. Tests install deterministic workers
// through this.
func (e *Executor) SetWorker(id string, w *worker.Worker) {
	e.workers[id] = w
}

func (e *Executor) SetReasoner(r agent.Reasoner)        { e.reasoner = r }
func (e *Executor) SetSearcher(s agent.ContextSearcher) { e.searcher = s }

// Outcome is what one walk over the plan produced.
type Outcome struct {
	WorkerResults []*worker.Result
	Results       map[string]string // taskID → result text
	AskedUser     bool
	Aborted       bool // critical-path abort
}

// Run executes the plan sequentially, mutating task status/result/error in
// place. It never returns an error: failures land on tasks and results.
func (e *Executor) Run(ctx context.Context, plan *planner.ActionPlan, conv *conversation.State, active []guideline.Match, mm *metrics.CascadeMetrics) *Outcome {
	out := &Outcome{Results: make(map[string]string)}

	for _, task := range plan.Tasks {
		if err := ctx.Err(); err != nil {
			task.Status = planner.StatusFailed
			task.Error = err.Error()
			break
		}

		task.Status = planner.StatusRunning
		tm := metrics.TaskMetrics{ID: task.ID, Type: string(task.Type), WorkerID: task.WorkerID, Start: time.Now()}

		taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
		halt := e.runTask(taskCtx, task, plan, conv, active, out)
		cancel()

		tm.End = time.Now()
		tm.Finalize()
		tm.Success = task.Status == planner.StatusCompleted || task.Status == planner.StatusAskUser
		tm.Err = task.Error
		if mm != nil {
			mm.Tasks = append(mm.Tasks, tm)
		}

		// Result text feeds the dependency map even for failed tasks; the
		// presence mode only ever checks that text exists.
		if task.Result != "" {
			out.Results[task.ID] = task.Result
		}

		if halt {
			break
		}
	}
	return out
}

// runTask dispatches one task by type and reports whether the walk must stop.
func (e *Executor) runTask(ctx context.Context, task *planner.PlanTask, plan *planner.ActionPlan, conv *conversation.State, active []guideline.Match, out *Outcome) (halt bool) {
	defer func() {
		if rec := recover(); rec != nil {
			task.Status = planner.StatusFailed
			task.Error = fmt.Sprintf("panic in task %s: %v", task.ID, rec)
			logger.Log.Printf("[Executor] %s", task.Error)
			if plan.CriticalPath && task.Type == planner.TaskWorkerCall {
				out.Aborted = true
				halt = true
			}
		}
	}()

	switch task.Type {
	case planner.TaskAskToUser:
		e.runAskToUser(task, plan, out)
		return true

	case planner.TaskReasoning:
		e.runReasoning(ctx, task, plan, conv, active, out)
		return false

	case planner.TaskContextSearch:
		e.runContextSearch(ctx, task, plan, conv, active, out)
		return false

	case planner.TaskWorkerCall:
		return e.runWorkerCall(ctx, task, plan, conv, active, out)
	}

	task.Status = planner.StatusFailed
	task.Error = fmt.Sprintf("unknown task type: %s", task.Type)
	return false
}

// runAskToUser snapshots everything gathered so far into the task result and
// halts the cascade; remaining tasks stay pending until the user answers.
func (e *Executor) runAskToUser(task *planner.PlanTask, plan *planner.ActionPlan, out *Outcome) {
	var ctxBlob strings.Builder
	for _, t := range plan.Tasks {
		if text, ok := out.Results[t.ID]; ok {
			ctxBlob.WriteString(fmt.Sprintf("%s: %s\n", t.ID, text))
		}
	}

	task.Result = fmt.Sprintf("[ASK_TO_USER] question: %s | context: %s", task.Description, ctxBlob.String())
	task.Status = planner.StatusAskUser
	out.AskedUser = true

	out.WorkerResults = append(out.WorkerResults, &worker.Result{
		WorkerID: "ask_to_user",
		Status:   worker.StatusSuccess,
		Response: task.Description,
		Validation: worker.Validation{
			Passed: true,
			Score:  10,
		},
	})
}

func (e *Executor) runReasoning(ctx context.Context, task *planner.PlanTask, plan *planner.ActionPlan, conv *conversation.State, active []guideline.Match, out *Outcome) {
	res, err := e.reasoner.Execute(ctx, agent.Input{
		Task:             task,
		Conversation:     conv,
		ActiveGuidelines: active,
		PreviousResults:  out.Results,
		Plan:             plan,
	})
	if err != nil || !res.Success {
		task.Status = planner.StatusFailed
		if err != nil {
			task.Error = err.Error()
		} else {
			task.Error = res.Error
		}
		return
	}

	var sb strings.Builder
	sb.WriteString("[REASONING]\n")
	sb.WriteString(fmt.Sprintf("conclusion: %s\n", res.Conclusion))
	sb.WriteString(fmt.Sprintf("confidence: %.2f\n", res.Confidence))
	for k, v := range res.Extracted {
		sb.WriteString(fmt.Sprintf("extracted %s: %s\n", k, v))
	}
	if res.Detail != "" {
		sb.WriteString(fmt.Sprintf("detail: %s\n", res.Detail))
	}
	task.Result = sb.String()
	task.Status = planner.StatusCompleted
}

func (e *Executor) runContextSearch(ctx context.Context, task *planner.PlanTask, plan *planner.ActionPlan, conv *conversation.State, active []guideline.Match, out *Outcome) {
	res, err := e.searcher.Execute(ctx, agent.Input{
		Task:             task,
		Conversation:     conv,
		ActiveGuidelines: active,
		PreviousResults:  out.Results,
		Plan:             plan,
	})
	if err != nil || !res.Success {
		task.Status = planner.StatusFailed
		if err != nil {
			task.Error = err.Error()
		} else {
			task.Error = res.Error
		}
		return
	}

	var sb strings.Builder
	sb.WriteString("[CONTEXT_SEARCH]\n")
	sb.WriteString(fmt.Sprintf("summary: %s\n", res.Summary))
	sb.WriteString(fmt.Sprintf("confidence: %.2f\n", res.Confidence))
	for _, item := range res.Found {
		sb.WriteString(fmt.Sprintf("found: %s\n", item))
	}
	task.Result = sb.String()
	task.Status = planner.StatusCompleted
}

func (e *Executor) dependenciesMet(task *planner.PlanTask, plan *planner.ActionPlan, out *Outcome) bool {
	for _, dep := range task.DependsOn {
		if e.depMode == DependencySuccess {
			if !e.depCompleted(dep, plan) {
				return false
			}
			continue
		}
		if _, ok := out.Results[dep]; !ok {
			return false
		}
	}
	return true
}

func (e *Executor) depCompleted(id string, plan *planner.ActionPlan) bool {
	for _, t := range plan.Tasks {
		if t.ID == id {
			return t.Status == planner.StatusCompleted
		}
	}
	return false
}

func (e *Executor) runWorkerCall(ctx context.Context, task *planner.PlanTask, plan *planner.ActionPlan, conv *conversation.State, active []guideline.Match, out *Outcome) bool {
	wk, registered := e.workers[task.WorkerID]
	if task.WorkerID == "" || !registered {
		task.Status = planner.StatusFailed
		task.Error = fmt.Sprintf("worker not found: %q", task.WorkerID)
		out.WorkerResults = append(out.WorkerResults, &worker.Result{
			WorkerID: task.WorkerID,
			Status:   worker.StatusFailed,
			Error:    task.Error,
		})
		return e.abortOnCritical(plan, out)
	}

	if !e.dependenciesMet(task, plan, out) {
		task.Status = planner.StatusFailed
		task.Error = errDependenciesNotCompleted
		out.WorkerResults = append(out.WorkerResults, &worker.Result{
			WorkerID: task.WorkerID,
			Status:   worker.StatusFailed,
			Error:    task.Error,
		})
		return e.abortOnCritical(plan, out)
	}

	prev := make(map[string]string, len(out.Results))
	for k, v := range out.Results {
		prev[k] = v
	}

	wr := wk.Execute(ctx, worker.Input{
		Task:             task,
		Conversation:     conv,
		ActiveGuidelines: active,
		PreviousResults:  prev,
		Plan:             plan,
		ContextVars:      conv.ContextVars,
	})
	out.WorkerResults = append(out.WorkerResults, wr)

	task.Result = wr.Response
	if wr.Status == worker.StatusSuccess {
		task.Status = planner.StatusCompleted
	} else {
		task.Status = planner.StatusFailed
		task.Error = wr.Error
	}

	if plan.CriticalPath && wr.Status != worker.StatusSuccess {
		out.Aborted = true
		return true
	}
	return false
}

// abortOnCritical stops the walk after a worker-task failure when the plan
// is critical-path; off the critical path the cascade keeps going.
func (e *Executor) abortOnCritical(plan *planner.ActionPlan, out *Outcome) bool {
	if plan.CriticalPath {
		out.Aborted = true
		return true
	}
	return false
}
