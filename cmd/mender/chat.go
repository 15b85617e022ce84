package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
)

// chatCmd creates the chat command for interactive sessions with an app
func chatCmd() *cobra.Command {
	var showFacets bool

	cmd := &cobra.Command{
		Use:   "chat [app]",
		Short: "Interactive session with a prompt application",
		Long: `Start an interactive session with one of the prompt applications.

Apps:
  memo_template  turn spoken requirements into a memo template
  web_answer     answer questions with live web search

The app loads its compiled program from the program directory when one
exists, otherwise it runs on the seed instruction.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app := models.AppMemoTemplate
			if len(args) > 0 {
				app = args[0]
			}

			taskLLM := llm.NewService(llmClient)

			switch app {
			case models.AppMemoTemplate:
				return runMemoChat(ctx, services.NewMemoAssistant(cfg.Paths.ProgramDir, taskLLM), showFacets)
			case models.AppWebAnswer:
				assistant := services.NewWebAnswerAssistant(cfg.Paths.ProgramDir, taskLLM, newSearchService(), cfg.Search.MaxResults)
				return runAnswerChat(ctx, assistant)
			default:
				return fmt.Errorf("unknown app %q (choose %s)", app, strings.Join(services.KnownApps(), " or "))
			}
		},
	}

	cmd.Flags().BoolVar(&showFacets, "facets", false, "Show the analyzed requirement facets before each template")

	return cmd
}

func runMemoChat(ctx context.Context, assistant *services.MemoAssistant, showFacets bool) error {
	fmt.Println("Describe the memo template you need. Type 'exit' or 'quit' to leave.")
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
			fmt.Println("\nGoodbye!")
			break
		}

		if showFacets {
			facets, err := assistant.AnalyzeRequirement(ctx, input)
			if err != nil {
				fmt.Printf("Facet analysis failed: %v\n", err)
			} else {
				fmt.Printf("Facets: language=%s style=%s tone=%s audience=%s verbosity=%s\n",
					facets.Language, facets.Style, facets.Tone, facets.Audience, facets.Verbosity)
			}
		}

		template, err := assistant.GenerateTemplate(ctx, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Println("\nTemplate:")
		fmt.Println(template)
		fmt.Println()
	}

	return scanner.Err()
}

func runAnswerChat(ctx context.Context, assistant *services.WebAnswerAssistant) error {
	fmt.Println("Ask a question. Type 'exit' or 'quit' to leave.")
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
			fmt.Println("\nGoodbye!")
			break
		}

		fmt.Println("Searching...")
		answer, err := assistant.Answer(ctx, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s\n", answer.Answer)
		if len(answer.Sources) > 0 {
			fmt.Println("\nSources:")
			for i, src := range answer.Sources {
				fmt.Printf("  [%d] %s\n      %s\n", i+1, src.Title, src.URL)
			}
		}
		fmt.Println()
	}

	return scanner.Err()
}
