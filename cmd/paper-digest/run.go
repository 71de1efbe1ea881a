// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/coordinator"
	"github.com/pdiddy/paper-digest/internal/fulltext"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/source"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rank, analyze and report today's papers",
	Long: `Run performs one digest: it queries arXiv for the configured categories,
ranks every candidate in overlapping windows, promotes the best scored
papers, fetches their full text, analyzes them in token-bounded batches and
writes the report. Failed windows, fetches and batches are reported in the
summary; the run still completes with partial results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		_, err := runDigest(ctx, cfg, metricsFile, cmd.OutOrStdout())
		return err
	},
}

func init() {
	runCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")
	runCmd.Flags().String("analysis-type", "", "quick, comprehensive or detailed")
	runCmd.Flags().String("provider", "", "model provider: anthropic, deepseek, qwen, openai")
	runCmd.Flags().StringSlice("categories", nil, "arXiv categories to query")
	runCmd.Flags().Int("max-papers", 0, "maximum candidates fetched from arXiv")
	runCmd.Flags().Int("max-analyze", 0, "maximum papers promoted to deep analysis")
	runCmd.Flags().String("output-dir", "", "directory for report files")

	_ = viper.BindPFlag("analysis.analysis_type", runCmd.Flags().Lookup("analysis-type"))
	_ = viper.BindPFlag("ai.provider", runCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("source.categories", runCmd.Flags().Lookup("categories"))
	_ = viper.BindPFlag("source.max_papers", runCmd.Flags().Lookup("max-papers"))
	_ = viper.BindPFlag("ranking.max_papers_to_analyze", runCmd.Flags().Lookup("max-analyze"))
	_ = viper.BindPFlag("report.output_dir", runCmd.Flags().Lookup("output-dir"))

	rootCmd.AddCommand(runCmd)
}

// runDigest executes one full digest run with c and persists its outputs.
// The digest is returned even when persisting fails.
func runDigest(ctx context.Context, c types.PipelineConfig, metricsFile string, out io.Writer) (types.Digest, error) {
	completer, err := llm.NewCompleter(c.AI, loadedSecrets)
	if err != nil {
		return types.Digest{}, err
	}
	metrics := observability.NewMetrics()
	assistant := llm.NewAssistant(completer, c.AI, logger)
	assistant.Observe = metrics.ObserveModelCall

	fetcher := fulltext.NewFetcher(c.Fetch, logger)
	fetcher.Workers = c.MaxWorkers

	coord := &coordinator.Coordinator{
		Ranker:   assistant,
		Analyzer: assistant,
		Fetcher:  fetcher,
		Config:   c,
		Metrics:  metrics,
		Log:      logger,
		Provider: completer.Name(),
	}

	runCtx := ctx
	if c.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.RunTimeout)
		defer cancel()
	}
	digest, err := coord.RunSource(runCtx, source.NewArxivSource(c.Source, logger))
	if err != nil {
		return types.Digest{}, err
	}

	// Outputs are written even if the run deadline expired.
	persistCtx := context.WithoutCancel(ctx)
	paths, err := report.NewFileSink(c.Report).Write(persistCtx, digest)
	if err != nil {
		return digest, fmt.Errorf("writing report: %w", err)
	}
	if c.HistoryDB != "" {
		if err := saveHistory(persistCtx, c.HistoryDB, digest, paths); err != nil {
			logger.Warn().Err(err).Msg("recording run history failed")
		}
	}
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			logger.Warn().Err(err).Msg("writing metrics failed")
		}
	}

	printSummary(out, digest.Summary, paths)
	return digest, nil
}

func saveHistory(ctx context.Context, path string, d types.Digest, reports []string) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(ctx, d, reports)
}

func printSummary(w io.Writer, s types.RunSummary, paths []string) {
	fmt.Fprintf(w, "run %s (%s) finished in %s\n", s.RunID, s.Provider, s.Duration().Round(time.Second))
	fmt.Fprintf(w, "  fetched:    %d\n", s.Fetched)
	fmt.Fprintf(w, "  ranked:     %d scored, %d/%d windows failed\n", s.Scored, s.FailedWindows, s.Windows)
	switch {
	case s.NoPromotions:
		fmt.Fprintf(w, "  promoted:   none cleared the threshold, deep analysis skipped\n")
	case s.Fallback:
		fmt.Fprintf(w, "  promoted:   %d (top-k fallback)\n", s.Promoted)
	default:
		fmt.Fprintf(w, "  promoted:   %d\n", s.Promoted)
	}
	if !s.NoPromotions {
		fmt.Fprintf(w, "  full text:  %d fetched, %d cached, %d from abstract\n", s.FullTextFetched, s.FullTextCached, s.FullTextDegraded)
		fmt.Fprintf(w, "  analysis:   %d ok, %d unavailable, %d failed (%d/%d batches failed)\n",
			s.Analyzed, s.Unavailable, s.Errored, s.FailedBatches, s.Batches)
	}
	for _, p := range paths {
		fmt.Fprintf(w, "  report:     %s\n", p)
	}
}
