package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/postgres"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// optimizeCmd provides subcommands for optimization run management
func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Manage prompt optimization runs",
		Long: `Run and inspect GEPA optimization runs.

Subcommands:
  run         Start an optimization run for an app
  list        List optimization runs
  show        Show details of a specific run
  candidates  List candidates for a run
  best        Show the best candidate for a run`,
	}

	cmd.AddCommand(
		optimizeRunCmd(),
		optimizeListCmd(),
		optimizeShowCmd(),
		optimizeCandidatesCmd(),
		optimizeBestCmd(),
	)

	return cmd
}

// newOptimizationService wires the optimization service against the
// configured database and LLM clients.
func newOptimizationService(ctx context.Context) (*services.OptimizationService, func(), error) {
	pool, err := initDB(ctx)
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewOptimizationService(
		postgres.NewOptimizationRepository(pool),
		llm.NewService(llmClient),
		llm.NewService(judgeClient),
		cfg.Optimizer,
	)
	return svc, pool.Close, nil
}

// optimizeRunCmd starts a new optimization run and waits for it
func optimizeRunCmd() *cobra.Command {
	var (
		name        string
		generations int
	)

	cmd := &cobra.Command{
		Use:   "run <app>",
		Short: "Start an optimization run",
		Long: `Run GEPA optimization for an app against its stored trainset.

The run blocks until optimization finishes and prints progress as
generations complete. The winning program is saved to the program
directory, where the app picks it up on next start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app := args[0]

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			optCfg := cfg.Optimizer
			if generations > 0 {
				optCfg.MaxGenerations = generations
			}

			judgeService := llm.NewService(judgeClient)
			svc := services.NewOptimizationService(
				postgres.NewOptimizationRepository(pool),
				llm.NewService(llmClient),
				judgeService,
				optCfg,
			)

			trainsets := services.NewTrainsetService(
				newSearchService(),
				postgres.NewTrainingExampleRepository(pool),
				cfg.Paths.TrainsetDir,
			)

			spec, err := services.BuildSpec(app, judgeService, trainsets)
			if err != nil {
				return err
			}

			if name == "" {
				name = fmt.Sprintf("%s %s", app, time.Now().Format("2006-01-02 15:04"))
			}

			fmt.Printf("Optimizing %s with %d training examples...\n", app, len(spec.Trainset))

			path := services.ProgramPath(cfg.Paths.ProgramDir, app)
			done := make(chan error, 1)

			run, err := svc.CreateRun(ctx, name, spec)
			if err != nil {
				return err
			}

			// subscribe before starting so no event is missed
			events, unsubscribe := svc.Publisher().Subscribe(run.ID)
			defer unsubscribe()

			svc.StartRun(run, spec, func(r *models.OptimizationRun, program *prompt.CompiledProgram, runErr error) {
				if runErr != nil {
					done <- runErr
					return
				}
				done <- program.Save(path)
			})

			fmt.Printf("Run ID: %s\n\n", run.ID)
			for event := range events {
				switch event.Stage {
				case "completed":
					fmt.Printf("\nCompleted: best score %.4f\n", event.BestScore)
				case "failed":
					fmt.Printf("\nFailed: %s\n", event.Message)
				default:
					fmt.Printf("  %s: %s\n", event.Stage, event.Message)
				}
			}

			if err := <-done; err != nil {
				return fmt.Errorf("optimization run %s failed: %w", run.ID, err)
			}

			final, err := svc.GetRun(ctx, run.ID)
			if err != nil {
				return err
			}

			fmt.Printf("Baseline score: %.4f\n", final.BaselineScore)
			fmt.Printf("Best score:     %.4f\n", final.BestScore)
			fmt.Printf("Program saved:  %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the optimization run")
	cmd.Flags().IntVarP(&generations, "generations", "g", 0, "Override the configured generation count")

	return cmd
}

// optimizeListCmd lists optimization runs
func optimizeListCmd() *cobra.Command {
	var (
		app   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List optimization runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newOptimizationService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := svc.ListRuns(ctx, app, limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No optimization runs found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tAPP\tSTATUS\tBASELINE\tBEST\tSTARTED\tCOMPLETED")
			fmt.Fprintln(w, "--\t----\t---\t------\t--------\t----\t-------\t---------")

			for _, run := range runs {
				completedStr := "N/A"
				if run.CompletedAt != nil {
					completedStr = run.CompletedAt.Format("2006-01-02 15:04")
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\t%s\n",
					shortID(run.ID),
					run.Name,
					run.App,
					run.Status,
					run.BaselineScore,
					run.BestScore,
					run.StartedAt.Format("2006-01-02 15:04"),
					completedStr,
				)
			}

			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&app, "app", "a", "", "Filter by app")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")

	return cmd
}

// optimizeShowCmd shows details of a specific optimization run
func optimizeShowCmd() *cobra.Command {
	var showJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show optimization run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newOptimizationService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := svc.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			if showJSON {
				data, err := json.MarshalIndent(run, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Optimization Run: %s\n", run.ID)
			fmt.Printf("Name:       %s\n", run.Name)
			fmt.Printf("App:        %s\n", run.App)
			fmt.Printf("Status:     %s\n", run.Status)
			fmt.Printf("Iterations: %d / %d\n", run.Iterations, run.MaxIterations)
			fmt.Printf("Baseline:   %.4f\n", run.BaselineScore)
			fmt.Printf("Best Score: %.4f\n", run.BestScore)
			fmt.Printf("Started:    %s\n", run.StartedAt.Format(time.RFC3339))
			if run.CompletedAt != nil {
				fmt.Printf("Completed:  %s\n", run.CompletedAt.Format(time.RFC3339))
			}
			fmt.Println()

			if len(run.Config) > 0 {
				fmt.Println("Configuration:")
				for key, val := range run.Config {
					fmt.Printf("  %s: %v\n", key, val)
				}
			}
			if reason, ok := run.Meta["failure_reason"]; ok {
				fmt.Printf("\nFailure reason: %v\n", reason)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	return cmd
}

// optimizeCandidatesCmd lists stored candidates for a run
func optimizeCandidatesCmd() *cobra.Command {
	var showJSON bool

	cmd := &cobra.Command{
		Use:   "candidates <run-id>",
		Short: "List prompt candidates for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newOptimizationService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			candidates, err := svc.GetCandidates(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get candidates: %w", err)
			}

			if len(candidates) == 0 {
				fmt.Println("No candidates found for this run.")
				return nil
			}

			if showJSON {
				data, err := json.MarshalIndent(candidates, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tITERATION\tSCORE\tEVALS\tPROMPT")
			fmt.Fprintln(w, "--\t---------\t-----\t-----\t------")

			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%d\t%.4f\t%d\t%s\n",
					shortID(c.ID),
					c.Iteration,
					c.Score,
					c.EvaluationCount,
					truncatePrompt(c.PromptText, 60),
				)
			}

			w.Flush()
			return nil
		},
	}

	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	return cmd
}

// optimizeBestCmd shows the best candidate for a run
func optimizeBestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best <run-id>",
		Short: "Show the best candidate for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newOptimizationService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			best, err := svc.GetBestCandidate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get best candidate: %w", err)
			}

			fmt.Printf("Best Candidate: %s\n", best.ID)
			fmt.Printf("Iteration:   %d\n", best.Iteration)
			fmt.Printf("Score:       %.4f\n", best.Score)
			fmt.Printf("Evaluations: %d\n", best.EvaluationCount)
			if len(best.CriterionScores) > 0 {
				fmt.Println("Criterion Scores:")
				for criterion, score := range best.CriterionScores {
					fmt.Printf("  %s: %.4f\n", criterion, score)
				}
			}
			fmt.Println("\nPrompt:")
			fmt.Println(best.PromptText)

			return nil
		},
	}

	return cmd
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func truncatePrompt(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
