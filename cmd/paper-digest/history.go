// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs, or the papers of one run",
	Long: `History lists recorded digest runs, newest first. Given a run id (or a
unique prefix of one) it prints that run's papers in fetch order with their
score, promotion and analysis outcome.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.HistoryDB == "" {
			return fmt.Errorf("history is disabled (history_db is empty)")
		}
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			papers, err := store.RunPapers(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			return printRunPapers(out, run, papers)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return printRuns(out, runs)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func printRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPROVIDER\tFETCHED\tPROMOTED\tANALYZED\tFAILED")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Provider,
			r.Fetched, r.Promoted, r.Analyzed, r.FailedWindows+r.FailedBatches)
	}
	return tw.Flush()
}

func printRunPapers(w io.Writer, run history.Run, papers []history.PaperRow) error {
	fmt.Fprintf(w, "run %s started %s\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"))
	for _, r := range run.Reports {
		fmt.Fprintf(w, "report %s\n", r)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPAPER\tSCORE\tPROMOTED\tOUTCOME\tTITLE")
	for _, p := range papers {
		score := "-"
		if p.Score != nil {
			score = fmt.Sprintf("%.1f", *p.Score)
		}
		promoted := ""
		switch {
		case p.Fallback:
			promoted = "fallback"
		case p.Promoted:
			promoted = "yes"
		}
		outcome := p.Outcome
		if p.ErrorKind != "" {
			outcome += " (" + p.ErrorKind + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.Position+1, p.PaperID, score, promoted, outcome, p.Title)
	}
	return tw.Flush()
}
