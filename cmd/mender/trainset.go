package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/postgres"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/trainset"
)

// trainsetCmd manages the JSONL trainsets the optimizer runs against
func trainsetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trainset",
		Short: "Build and inspect training sets",
	}

	cmd.AddCommand(
		trainsetBuildCmd(),
		trainsetStatsCmd(),
		trainsetShowCmd(),
	)

	return cmd
}

// newTrainsetService builds the trainset service, mirroring examples to
// PostgreSQL when a connection is configured.
func newTrainsetService(ctx context.Context) (*services.TrainsetService, func()) {
	var repo ports.TrainingExampleRepository
	cleanup := func() {}

	if cfg.Database.PostgresURL != "" {
		pool, err := initDB(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: database unavailable, examples stay on disk only: %v\n", err)
		} else {
			repo = postgres.NewTrainingExampleRepository(pool)
			cleanup = pool.Close
		}
	}

	return services.NewTrainsetService(newSearchService(), repo, cfg.Paths.TrainsetDir), cleanup
}

func trainsetBuildCmd() *cobra.Command {
	var (
		queriesFile string
		maxResults  int
		delaySecs   int
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "build [query...]",
		Short: "Build the web_answer trainset from search queries",
		Long: `Build the web_answer trainset by running each query against web
search and storing the retrieved context. Queries come from the
arguments or from a file with one query per line (# comments allowed).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			queries := args
			if queriesFile != "" {
				fromFile, err := trainset.LoadQueries(queriesFile)
				if err != nil {
					return fmt.Errorf("failed to load queries from %s: %w", queriesFile, err)
				}
				queries = append(queries, fromFile...)
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries given: pass them as arguments or with --queries-file")
			}

			svc, cleanup := newTrainsetService(ctx)
			defer cleanup()

			opts := []trainset.BuilderOption{
				trainset.WithMaxResults(maxResults),
				trainset.WithDelay(time.Duration(delaySecs) * time.Second),
			}
			if seed != 0 {
				opts = append(opts, trainset.WithSeed(seed))
			}

			fmt.Printf("Building trainset from %d queries...\n", len(queries))
			examples, err := svc.BuildWebAnswerTrainset(ctx, queries, opts...)
			if err != nil {
				return err
			}

			fmt.Printf("Saved %d examples to %s\n", len(examples), svc.TrainsetPath(models.AppWebAnswer))
			if skipped := len(queries) - len(examples); skipped > 0 {
				fmt.Printf("Skipped %d queries with no usable results\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queriesFile, "queries-file", "f", "", "File with one search query per line")
	cmd.Flags().IntVar(&maxResults, "max-results", 5, "Search results to keep per query")
	cmd.Flags().IntVar(&delaySecs, "delay", 2, "Seconds to wait between queries")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for query shuffling (0 to disable)")

	return cmd
}

func trainsetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show example counts per app",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup := newTrainsetService(ctx)
			defer cleanup()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "APP\tEXAMPLES\tPATH")
			for _, app := range services.KnownApps() {
				count, err := svc.Count(ctx, app)
				if err != nil {
					return fmt.Errorf("failed to count %s examples: %w", app, err)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", app, count, svc.TrainsetPath(app))
			}
			return w.Flush()
		},
	}
}

func trainsetShowCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <app>",
		Short: "Print stored examples for an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app := args[0]

			svc, cleanup := newTrainsetService(ctx)
			defer cleanup()

			var inputKeys []string
			switch app {
			case models.AppMemoTemplate:
				inputKeys = []string{"requirements"}
			case models.AppWebAnswer:
				inputKeys = []string{"context", "question"}
			}

			examples, err := svc.LoadTrainset(app, inputKeys...)
			if err != nil {
				return err
			}
			if limit > 0 && len(examples) > limit {
				examples = examples[:limit]
			}

			for i, ex := range examples {
				fmt.Printf("--- example %d ---\n", i+1)
				for _, name := range ex.Names() {
					value := ex.GetString(name)
					if len(value) > 200 {
						value = value[:200] + "..."
					}
					role := "output"
					if ex.IsInput(name) {
						role = "input"
					}
					fmt.Printf("%s (%s): %s\n", name, role, strings.ReplaceAll(value, "\n", " "))
				}
				fmt.Println()
			}
			fmt.Printf("%d examples\n", len(examples))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many examples (0 for all)")

	return cmd
}
