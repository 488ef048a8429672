package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"concierge/internal/planner"
	"concierge/internal/worker"
)

const maxResultDisplayLength = 120

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

func FormatPlan(plan *planner.ActionPlan) string {
	var sb strings.Builder
	sb.WriteString(headerColor.Sprint("Action plan") + "\n")
	sb.WriteString("--------------------------------------------------\n")
	if plan.DirectToWriter {
		sb.WriteString("  (direct to writer, no tasks)\n")
	}
	for _, t := range plan.Tasks {
		sb.WriteString(fmt.Sprintf("  Step %d: %s (%s)", t.Step, t.ID, t.Type))
		if t.WorkerID != "" {
			sb.WriteString(" → " + t.WorkerID)
		}
		if len(t.DependsOn) > 0 {
			sb.WriteString(dimColor.Sprintf("  deps=[%s]", strings.Join(t.DependsOn, ", ")))
		}
		sb.WriteString("\n")
		sb.WriteString(dimColor.Sprintf("    %s\n", truncate(t.Description)))
	}
	if plan.CriticalPath {
		sb.WriteString(failColor.Sprint("  critical path: any worker failure aborts\n"))
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatWorkerResults(results []*worker.Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(headerColor.Sprint("Worker results") + "\n")
	for _, r := range results {
		status := okColor.Sprint(string(r.Status))
		if r.Status == worker.StatusFailed {
			status = failColor.Sprint(string(r.Status))
		}
		sb.WriteString(fmt.Sprintf("  %-16s [%s] score=%.1f iter=%d\n",
			r.WorkerID, status, r.Validation.Score, r.Validation.Iterations))
		if r.Response != "" {
			sb.WriteString(dimColor.Sprintf("    %s\n", truncate(r.Response)))
		}
		if r.Error != "" {
			sb.WriteString(failColor.Sprintf("    error: %s\n", truncate(r.Error)))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxResultDisplayLength {
		return s[:maxResultDisplayLength] + "..."
	}
	return s
}
