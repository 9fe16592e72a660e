package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/classify"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/usecase"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Chronicles an organization's member activity and outputs it as JSON",
	Long: `Collects activity for every public member of an organization (or of one
team) for the date range and outputs the aggregate in JSON format.
Inactive members are filtered out by a quota-free calendar scan before
any expensive query runs, and the estimated API cost is checked against
the remaining rate limit first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		org, _ := cmd.Flags().GetString("org")
		team, _ := cmd.Flags().GetString("team")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		days, _ := cmd.Flags().GetInt("days")
		yes, _ := cmd.Flags().GetBool("yes")
		full, _ := cmd.Flags().GetBool("full")

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
		scanner := usecase.NewScanner(githubGateway, logger)
		runner := usecase.NewOrgRunner(githubGateway, gatherer, scanner, logger)

		opts := usecase.OrgOptions{
			Org:  org,
			Team: team,
			From: from,
			To:   to,
			Full: full,
		}
		if !yes {
			opts.Confirm = confirmOnTerminal
		}

		activity, err := runner.Run(ctx, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to chronicle organization: %v\n", err)
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

// confirmOnTerminal asks the user to approve an expensive run.
func confirmOnTerminal(message string) bool {
	fmt.Fprintf(os.Stderr, "%s\nContinue? [y/N]: ", message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(orgCmd)
	orgCmd.Flags().StringP("org", "o", "", "Target GitHub organization name (required)")
	orgCmd.MarkFlagRequired("org")
	orgCmd.Flags().String("team", "", "Restrict members to one team slug")
	orgCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	orgCmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	orgCmd.Flags().Int("days", 0, "Look back this many days from today instead of --from/--to")
	orgCmd.Flags().BoolP("yes", "y", false, "Skip the cost confirmation prompt")
	orgCmd.Flags().Bool("full", false, "Full per-member gathering (commit search, fork scan, stats)")
}
