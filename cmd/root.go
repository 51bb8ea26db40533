// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Status colors for user-facing output.
var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "weekly-report",
	Short: "A CLI tool to assemble a weekly activity report.",
	Long: `weekly-report collects a week of GitHub, SonarQube, Google Calendar and
Google Forms activity, summarizes pull requests with an LLM, and renders the
result into a Markdown report. The report can be sent as a Gmail draft and
pushed into the shared Google Doc linked from the weekly request email.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; the environment may already be set.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		_, _ = failureColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./.weekly-report.yaml or $HOME/.weekly-report.yaml)")
	rootCmd.PersistentFlags().String("user-data", "user_data.toml", "Path to the user data TOML file")
	bindFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	bindFlag("user-data", rootCmd.PersistentFlags().Lookup("user-data"))
}

// newLogger returns a logger that discards everything unless --verbose is set.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
	if verbose {
		logger.SetOutput(os.Stderr) // If verbose, log to standard error.
	}
	return logger
}
