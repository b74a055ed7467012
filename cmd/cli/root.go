package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	githubToken string
	logLevel    string
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

var rootCmd = &cobra.Command{
	Use:   "migration-warden",
	Short: "migration-warden reviews the Laravel migrations of a pull request.",
	Long: `migration-warden finds the database migrations a pull request changes, dry-runs
them to collect the SQL they would execute, optionally asks a language model
whether they are safe to run, and keeps one comment on the pull request up to date.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token (defaults to MW_GITHUB_TOKEN or GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	bindFlag("github.token", "github-token")
	bindFlag("logging.level", "log-level")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		slog.Error("error binding flag", "flag", flag, "error", err)
		os.Exit(1)
	}
}
