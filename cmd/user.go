package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/classify"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/usecase"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Chronicles one user's activity and outputs it as JSON",
	Long: `Collects a single user's activity (commits across the search index and
fork branches, per-commit line stats, created and reviewed PRs) for the
date range and outputs the result in JSON format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		login, _ := cmd.Flags().GetString("user")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		days, _ := cmd.Flags().GetInt("days")

		from, to, err := resolveWindow(fromStr, toStr, days)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token, err := githubToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		classifier := classify.NewClassifier(classify.DefaultRules(), githubGateway, logger)
		gatherer := usecase.NewGatherer(githubGateway, classifier, logger)

		activity, err := gatherer.GatherMemberActivity(ctx, login, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to gather activity: %v\n", err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(activity, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal result to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.Flags().StringP("user", "u", "", "Target GitHub user name (required)")
	userCmd.MarkFlagRequired("user")
	userCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	userCmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	userCmd.Flags().Int("days", 0, "Look back this many days from today instead of --from/--to")
}
