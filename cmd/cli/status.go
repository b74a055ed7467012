package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/gitutil"
	"github.com/sevigo/migration-warden/internal/wire"
)

var (
	outputJSON  bool
	statusLimit int
	statusPR    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows recent migration check runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, cleanup, err := wire.InitializeHistory()
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer cleanup()

		var runs []*core.CheckRun
		if statusPR != "" {
			owner, repo, number, err := gitutil.ParsePullRequestURL(statusPR)
			if err != nil {
				return err
			}
			run, err := store.LatestCheckRun(ctx, owner+"/"+repo, number)
			if err != nil {
				return err
			}
			runs = []*core.CheckRun{run}
		} else {
			runs, err = store.ListCheckRuns(ctx, statusLimit)
			if err != nil {
				return err
			}
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(runs)
		}

		if len(runs) == 0 {
			dimColor.Println("No migration checks have been recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tPR\tHEAD\tOUTCOME\tMIGRATIONS\tWHEN")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t#%d\t%s\t%s\t%d\t%s\n",
				r.RepoFullName,
				r.PRNumber,
				shortSHA(r.HeadSHA),
				r.Outcome,
				r.MigrationCount,
				r.CreatedAt.Local().Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output runs as JSON")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "Number of runs to show")
	statusCmd.Flags().StringVar(&statusPR, "pr", "", "Only show the latest run of this pull request (URL or owner/repo#number)")
	rootCmd.AddCommand(statusCmd)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
