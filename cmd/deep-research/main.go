package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mikeboe/deep-research/pkg/clients"
	"github.com/mikeboe/deep-research/pkg/config"
	"github.com/mikeboe/deep-research/pkg/fetch"
	"github.com/mikeboe/deep-research/pkg/gateway"
	"github.com/mikeboe/deep-research/pkg/research"
	"github.com/mikeboe/deep-research/pkg/search"
	"github.com/spf13/cobra"
)

var (
	query      string
	outputFile string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "deep-research",
		Short: "A terminal-based deep research agent",
		Long:  `deep-research is an autonomous agent that investigates a topic by iterating through a plan, search, and reflect loop, then writes a final markdown report.`,
		Run: func(cmd *cobra.Command, args []string) {

			queryFlagChanged := cmd.Flags().Changed("query")

			if !queryFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research query: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Query cannot be empty")
					os.Exit(1)
				}
			} else {
				if query == "" {
					slog.Error("--query flag provided but empty")
					os.Exit(1)
				}
			}

			slog.Info("Starting research", "query", query)

			llm, err := clients.GoogleAi(clients.ModelType(cfg.Model))
			if err != nil {
				slog.Error("Failed to initialize model client", "error", err)
				os.Exit(1)
			}

			engine := research.NewEngine(
				gateway.New(llm),
				search.ByName(cfg.SearchProvider),
				fetch.NewHTTP(),
				research.Config{
					MaxIterations:    cfg.MaxIterations,
					ConcurrencyLimit: cfg.ConcurrencyLimit,
					Verbose:          cfg.Verbose,
				},
			)

			ctx := context.Background()
			state := engine.Run(ctx, query, nil, nil)

			slog.Info("Research finished",
				"iterations", state.Iterations,
				"learnings", len(state.Learnings),
				"sources", len(state.VisitedURLs))

			report, err := engine.WriteFinalReport(ctx, query, state.Learnings, state.VisitedURLs)
			if err != nil {
				slog.Error("Failed to write final report", "error", err)
				os.Exit(1)
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(report), 0o644); err != nil {
					slog.Error("Failed to save report", "path", outputFile, "error", err)
					os.Exit(1)
				}
				slog.Info("Report saved", "path", outputFile)
			} else {
				fmt.Println(report)
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research query")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the final report to a file instead of stdout")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
