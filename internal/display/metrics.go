package display

import (
	"fmt"
	"strings"

	"concierge/internal/metrics"
)

func FormatCascadeMetrics(mm *metrics.CascadeMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Cascade metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v)\n", mm.DurationMs, mm.Succeeded))
	for _, t := range mm.Tasks {
		status := "ok"
		if !t.Success {
			status = "err"
		}
		label := t.Type
		if t.WorkerID != "" {
			label = t.Type + ":" + t.WorkerID
		}
		sb.WriteString(fmt.Sprintf("  • %-14s %-28s %5d ms  [%s]\n",
			t.ID, "("+label+")", t.DurationMs, status))
	}
	return strings.TrimRight(sb.String(), "\n")
}
