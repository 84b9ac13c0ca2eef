// Command setlistgraph resolves performer aliases in a track-listing corpus,
// builds the collaboration graph and partitions it into communities.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gilchrisn/setlist-graph/pkg/config"
	"github.com/gilchrisn/setlist-graph/pkg/metrics"
	"github.com/gilchrisn/setlist-graph/pkg/pipeline"
	"github.com/gilchrisn/setlist-graph/pkg/records"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	seed    int64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:          "setlistgraph",
		Short:        "Resolve performer aliases and find collaboration communities",
		Long:         "Reads a CSV of track-listing records, merges near-duplicate performer names, builds the performer collaboration graph and detects communities with Louvain.",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "Path to a YAML, TOML or JSON config file")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.Float64P("threshold", "t", 80, "Similarity threshold; pairs scoring strictly above it merge")
	flags.Float64("lower-bound", 65, "Lower bound of the diagnostic similarity table")
	flags.String("scorer", "ratio", "Similarity scorer (ratio, levenshtein)")
	flags.Bool("case-sensitive", true, "Compare names case-sensitively")
	flags.StringSlice("columns", []string{"DJ*", "Artist*", "RemixOrEdit*"}, "Contributing performer columns; a trailing * matches by prefix")
	flags.Int("workers", 0, "Scoring goroutines (0 means one per CPU)")
	flags.Int64Var(&a.seed, "seed", 0, "Community detection seed (unset means fixed sorted-name order)")
	flags.Bool("require-seed", false, "Fail unless a community detection seed is configured")
	flags.Bool("split-collaborations", false, "Split \"A & B\" and \"A b2b B\" slots into separate columns")
	flags.Bool("extract-remixers", false, "Pull \"(X Remix)\" credits out of track names")
	flags.StringP("output", "o", "setlist_output", "Output directory")
	flags.String("metrics-textfile", "", "Write run metrics to this Prometheus textfile")

	for key, flag := range map[string]string{
		"logging.level":             "log-level",
		"similarity_threshold":      "threshold",
		"diagnostic_lower_bound":    "lower-bound",
		"scorer":                    "scorer",
		"case_sensitive":            "case-sensitive",
		"contributing_role_columns": "columns",
		"workers":                   "workers",
		"require_seed":              "require-seed",
		"split_collaborations":      "split-collaborations",
		"extract_remixers":          "extract-remixers",
		"output.dir":                "output",
		"metrics.textfile":          "metrics-textfile",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newRunCmd(a),
		newSimilarityCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// load resolves the configuration. The seed flag is applied only when given,
// since an unset seed and seed 0 mean different things.
func (a *app) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	if cmd.Flags().Changed("seed") {
		a.v.Set("community_detection_seed", a.seed)
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, cfg.CreateLogger(), nil
}

// prepare loads configuration and records and builds the pipeline.
func (a *app) prepare(cmd *cobra.Command, path string) (*config.Config, *pipeline.Pipeline, *metrics.Metrics, []records.Record, zerolog.Logger, error) {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return nil, nil, nil, nil, logger, err
	}

	recs, err := records.LoadCSVFile(path)
	if err != nil {
		return nil, nil, nil, nil, logger, err
	}
	logger.Info().Str("input", path).Int("records", len(recs)).Msg("Records loaded")

	m := metrics.New()
	p, err := pipeline.New(cfg, logger, m)
	if err != nil {
		return nil, nil, nil, nil, logger, err
	}
	return cfg, p, m, recs, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
