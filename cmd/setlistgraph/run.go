package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/setlist-graph/pkg/config"
	"github.com/gilchrisn/setlist-graph/pkg/metrics"
	"github.com/gilchrisn/setlist-graph/pkg/output"
	"github.com/gilchrisn/setlist-graph/pkg/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <records.csv>",
		Short: "Run the full pipeline and write every table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, m, recs, logger, err := a.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			res, err := p.Run(ctx, recs)
			if err != nil {
				return err
			}
			return writeResults(cfg, res, m, logger)
		},
	}
}

func newSimilarityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity <records.csv>",
		Short: "Score candidate pairs only and write the similarity diagnostics",
		Long:  "Scores every pair of distinct performer names and writes the pairs above the diagnostic lower bound with a score histogram, for calibrating the merge threshold.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, m, recs, logger, err := a.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			res, err := p.Score(ctx, recs)
			if err != nil {
				return err
			}
			return writeResults(cfg, res, m, logger)
		},
	}
}

func writeResults(cfg *config.Config, res *pipeline.Result, m *metrics.Metrics, logger zerolog.Logger) error {
	written, err := output.NewFileWriter().WriteAll(res, cfg.Output.Dir)
	if err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
		written = append(written, cfg.Metrics.Textfile)
	}
	logger.Info().Strs("files", written).Msg("Results written")
	return nil
}
