package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/config"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mender",
		Short: "Prompt Mender - LLM prompt optimization toolkit",
		Long: `Prompt Mender optimizes the instructions of small LLM applications
with evolutionary search over LLM-judged metrics.

It ships two applications: a voice-memo template generator and a
web-search question answerer. Trainsets are plain JSONL files; compiled
programs are JSON artifacts the apps load on startup.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.MaxTokens,
				cfg.LLM.Temperature,
			)

			judge := cfg.JudgeOrTaskLLM()
			judgeClient = llm.NewClient(
				judge.URL,
				judge.APIKey,
				judge.Model,
				judge.MaxTokens,
				judge.Temperature,
				llm.WithRole("judge"),
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		chatCmd(),
		trainsetCmd(),
		optimizeCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Task LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			judge := cfg.JudgeOrTaskLLM()
			fmt.Println("Judge LLM:")
			fmt.Printf("  URL:         %s\n", judge.URL)
			fmt.Printf("  Model:       %s\n", judge.Model)
			fmt.Printf("  Temperature: %.2f\n", judge.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(judge.APIKey))
			fmt.Println()

			fmt.Println("Search:")
			fmt.Printf("  Region:        %s\n", cfg.Search.Region)
			fmt.Printf("  Max Results:   %d\n", cfg.Search.MaxResults)
			fmt.Printf("  Fetch Content: %t\n", cfg.Search.FetchContent)
			fmt.Println()

			fmt.Println("Optimizer:")
			fmt.Printf("  Generations:     %d\n", cfg.Optimizer.MaxGenerations)
			fmt.Printf("  Population:      %d\n", cfg.Optimizer.PopulationSize)
			fmt.Printf("  Mutation Rate:   %.2f\n", cfg.Optimizer.MutationRate)
			fmt.Printf("  Crossover Rate:  %.2f\n", cfg.Optimizer.CrossoverRate)
			fmt.Printf("  Valset Fraction: %.2f\n", cfg.Optimizer.ValsetFraction)
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Println()

			fmt.Println("Paths:")
			fmt.Printf("  Data:      %s\n", cfg.Paths.DataDir)
			fmt.Printf("  Trainsets: %s\n", cfg.Paths.TrainsetDir)
			fmt.Printf("  Programs:  %s\n", cfg.Paths.ProgramDir)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  MENDER_LLM_URL, MENDER_LLM_API_KEY, MENDER_LLM_MODEL")
			fmt.Println("  MENDER_JUDGE_URL, MENDER_JUDGE_API_KEY, MENDER_JUDGE_MODEL")
			fmt.Println("  MENDER_SEARCH_REGION, MENDER_SEARCH_MAX_RESULTS")
			fmt.Println("  MENDER_OPTIMIZER_MAX_GENERATIONS, MENDER_OPTIMIZER_POPULATION_SIZE")
			fmt.Println("  MENDER_POSTGRES_URL, MENDER_SERVER_HOST, MENDER_SERVER_PORT")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Prompt Mender %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
