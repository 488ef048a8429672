package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"concierge/internal/cascade"
	"concierge/internal/conversation"
	"concierge/internal/display"
	"concierge/internal/listener"
	"concierge/internal/logger"
	"concierge/internal/worker"
)

const maxHistoryTurns = 12

var (
	orch *cascade.Orchestrator

	showPlan    bool
	showMetrics bool
)

// Configure installs the orchestrator before Execute runs the chat loop.
func Configure(o *cascade.Orchestrator) {
	orch = o
}

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "A guideline-driven conversational concierge",
	Long:  `A conversational assistant that matches behavioral guidelines against each message, plans a task cascade, and replies through specialized workers.`,
	Run: func(cmd *cobra.Command, args []string) {
		runChat()
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showPlan, "show-plan", false, "print the action plan before each reply")
	rootCmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "print cascade metrics after each reply")
}

func runChat() {
	if err := listener.Init(); err != nil {
		fmt.Println("Failed to init terminal input:", err)
		os.Exit(1)
	}
	defer listener.Close()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	conv := &conversation.State{
		SessionID:   uuid.New().String()[:8],
		ContextVars: make(map[string]string),
	}

	listener.Println("Hello! How can I help you today? (type 'exit' or press Ctrl+C to quit)")

	for {
		input := listener.GetInput()
		if strings.EqualFold(strings.TrimSpace(input), "exit") {
			fmt.Println("Goodbye!")
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		conv.LastMessage = input
		conv.Turns = append(conv.Turns, conversation.Turn{Role: "user", Content: input})
		trimHistory(conv)

		res := orch.Execute(context.Background(), conv, "", "")

		if showPlan && res.Metadata.Plan != nil {
			listener.Println(display.FormatPlan(res.Metadata.Plan))
		}

		listener.Println("concierge> " + res.Response)
		if !res.Success {
			logger.Log.Printf("[CLI] session %s cascade failed: %s", conv.SessionID, res.Error)
		}

		if showPlan && len(res.Metadata.WorkerResults) > 0 {
			listener.Println(display.FormatWorkerResults(res.Metadata.WorkerResults))
		}

		recordToolResults(conv, res)
		conv.Turns = append(conv.Turns, conversation.Turn{Role: "assistant", Content: res.Response})
		trimHistory(conv)

		if showMetrics && res.Metadata.Metrics != nil {
			listener.Println(display.FormatCascadeMetrics(res.Metadata.Metrics))
		}
	}
}

func trimHistory(conv *conversation.State) {
	if len(conv.Turns) > maxHistoryTurns {
		conv.Turns = conv.Turns[len(conv.Turns)-maxHistoryTurns:]
	}
}

// recordToolResults folds this cascade's tool executions into the
// conversation so the matcher can weigh follow-up messages against them.
func recordToolResults(conv *conversation.State, res *cascade.Result) {
	for _, wr := range res.Metadata.WorkerResults {
		for _, te := range wr.ToolsExecuted {
			summary := te.Error
			if summary == "" {
				summary = summarizeToolResult(te)
			}
			conv.ToolResults = append(conv.ToolResults, conversation.ToolOutcome{
				ToolName: te.ToolName,
				Summary:  summary,
			})
		}
	}
	if len(conv.ToolResults) > maxHistoryTurns {
		conv.ToolResults = conv.ToolResults[len(conv.ToolResults)-maxHistoryTurns:]
	}
}

func summarizeToolResult(te worker.ToolExecution) string {
	parts := make([]string, 0, len(te.Result))
	for k, v := range te.Result {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	if len(parts) == 0 {
		return "ok"
	}
	s := strings.Join(parts, " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
