package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/task"
	"github.com/spf13/cobra"
)

// Theme holds the color scheme for task output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle(s models.TaskStatus) lipgloss.Style {
	switch s {
	case models.StatusSuccess:
		return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	case models.StatusFailed:
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(t.Status)
	}
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect or run tasks",
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-uri>",
	Short: "Show a task and its input entity",
	Long: `Show the status, operation and error of a task together with the
recognized entity of its input container.

Examples:
  entity-linker task show http://redpencil.data.gift/id/task/1234`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskShow,
}

var taskRunCmd = &cobra.Command{
	Use:   "run <task-uri>",
	Short: "Run a single task now",
	Long: `Claim and execute one task in the foreground, bypassing the coordinator.
Only a SCHEDULED task can be claimed.

Examples:
  entity-linker task run http://redpencil.data.gift/id/task/1234`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskRun,
}

func init() {
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskRunCmd)
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := task.NewSPARQLStore(newSPARQLClient(cfg, nil, logger).Sudo(), cfg.ApplicationGraph, logger)

	t, err := store.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	var input *models.EntityInput
	if t.Operation == models.OperationNamedEntityLinking {
		input, err = store.FetchInput(ctx, t.URI)
		if err != nil {
			logger.Debug("no entity input", "task", t.URI, "error", err)
		}
	}

	printTask(os.Stdout, defaultTheme, t, input)
	return nil
}

func runTaskRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.executor.Execute(ctx, args[0]); err != nil {
		return err
	}

	t, err := a.store.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("reload task: %w", err)
	}
	printTask(os.Stdout, defaultTheme, t, nil)

	if snap := a.metrics.Snapshot(); snap.AgentLLM != nil {
		fmt.Println(defaultTheme.hintStyle().Render(fmt.Sprintf("%d LLM calls, %s",
			snap.AgentLLM.Count, tokenSummary(snap.AgentLLM))))
	}
	return nil
}

func printTask(w io.Writer, theme Theme, t *models.Task, input *models.EntityInput) {
	fmt.Fprintf(w, "Task:      %s\n", t.URI)
	fmt.Fprintf(w, "Status:    %s\n", theme.statusStyle(t.Status).Render(t.Status.Short()))
	fmt.Fprintf(w, "Operation: %s\n", t.Operation)
	if t.JobURI != "" {
		fmt.Fprintf(w, "Job:       %s\n", t.JobURI)
	}
	if !t.Created.IsZero() {
		fmt.Fprintf(w, "Created:   %s\n", t.Created.Format("2006-01-02 15:04:05"))
	}
	if !t.Modified.IsZero() {
		fmt.Fprintf(w, "Modified:  %s\n", t.Modified.Format("2006-01-02 15:04:05"))
	}
	if t.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", strings.TrimSpace(t.Error))
	}

	if input != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Entity:    %s (%s)\n", input.EntityLabel, input.EntityClass)
		fmt.Fprintf(w, "Location:  %s\n", input.Location)
		fmt.Fprintln(w, theme.hintStyle().Render("annotation "+input.Annotation))
	}
}

func tokenSummary(s *metrics.OperationSnapshot) string {
	if s.TotalInputTokens == nil || s.TotalOutputTokens == nil {
		return "token usage unavailable"
	}
	return fmt.Sprintf("%d input / %d output tokens", *s.TotalInputTokens, *s.TotalOutputTokens)
}
