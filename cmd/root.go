// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gh-activity-chronicle",
	Short: "A CLI tool to chronicle GitHub activity.",
	Long: `gh-activity-chronicle collects a user's or an organization's GitHub
activity (commits, PRs created/reviewed) over a date range and outputs
the aggregate in JSON format. Fork commits are credited to the upstream
repository and known mirror noise is filtered out.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

// newLogger builds the command logger: silent by default, standard error
// when --verbose is set.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

const inputDateLayout = "2006-01-02"

// resolveWindow turns the --from/--to/--days flags into a concrete date
// range. --days counts back from today and wins when set; otherwise both
// dates are required.
func resolveWindow(fromStr, toStr string, days int) (time.Time, time.Time, error) {
	if days > 0 {
		to := time.Now().UTC().Truncate(24 * time.Hour)
		return to.AddDate(0, 0, -(days - 1)), to, nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("either --days or both --from and --to must be set")
	}
	from, err := time.Parse(inputDateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date, use YYYY-MM-DD: %w", err)
	}
	to, err := time.Parse(inputDateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date, use YYYY-MM-DD: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}

// githubToken reads the required token from the environment.
func githubToken() (string, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return "", fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	return token, nil
}
