// Package config loads run configuration from defaults, an optional config
// file, SETLISTGRAPH_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
	"github.com/gilchrisn/setlist-graph/pkg/louvain"
)

// EnvPrefix is prepended to every environment override, with dots replaced
// by underscores: SETLISTGRAPH_LOUVAIN_MAX_LEVELS.
const EnvPrefix = "SETLISTGRAPH"

var validate = validator.New()

// Config is the full run configuration.
type Config struct {
	SimilarityThreshold     float64  `mapstructure:"similarity_threshold" validate:"gte=0,lte=100"`
	DiagnosticLowerBound    float64  `mapstructure:"diagnostic_lower_bound" validate:"gte=0,lte=100"`
	CaseSensitive           bool     `mapstructure:"case_sensitive"`
	Scorer                  string   `mapstructure:"scorer" validate:"oneof=ratio levenshtein"`
	CanonicalRule           string   `mapstructure:"canonical_rule" validate:"oneof=lexicographic most_frequent"`
	ContributingRoleColumns []string `mapstructure:"contributing_role_columns" validate:"min=1,dive,required"`
	ProtectedTokens         []string `mapstructure:"protected_tokens"`
	CommunityDetectionSeed  *int64   `mapstructure:"community_detection_seed"`
	RequireSeed             bool     `mapstructure:"require_seed"`
	Workers                 int      `mapstructure:"workers" validate:"gte=0"`
	MaxDistinctNames        int      `mapstructure:"max_distinct_names" validate:"gte=0"`
	MinEdgeWeight           int      `mapstructure:"min_edge_weight" validate:"gte=1"`
	SplitCollaborations     bool     `mapstructure:"split_collaborations"`
	ExtractRemixers         bool     `mapstructure:"extract_remixers"`

	Louvain LouvainConfig `mapstructure:"louvain"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LouvainConfig tunes community detection.
type LouvainConfig struct {
	MaxLevels         int     `mapstructure:"max_levels" validate:"gte=1"`
	MaxIterations     int     `mapstructure:"max_iterations" validate:"gte=1"`
	MinModularityGain float64 `mapstructure:"min_modularity_gain" validate:"gte=0"`
	Resolution        float64 `mapstructure:"resolution" validate:"gt=0"`
	// MovesFile, when set, receives every node move as a JSON line.
	MovesFile string `mapstructure:"moves_file"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the run metrics in Prometheus text format.
	Textfile string `mapstructure:"textfile"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// New returns a viper instance carrying defaults and environment bindings.
// Callers may bind CLI flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// no default, so AutomaticEnv alone would not surface it to Unmarshal
	_ = v.BindEnv("community_detection_seed")

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("similarity_threshold", 80.0)
	v.SetDefault("diagnostic_lower_bound", 65.0)
	v.SetDefault("case_sensitive", true)
	v.SetDefault("scorer", "ratio")
	v.SetDefault("canonical_rule", "lexicographic")
	v.SetDefault("contributing_role_columns", []string{"DJ*", "Artist*", "RemixOrEdit*"})
	v.SetDefault("protected_tokens", []string{"ID", "Unknown Artist", "?"})
	v.SetDefault("require_seed", false)
	v.SetDefault("workers", 0)
	v.SetDefault("max_distinct_names", 5000)
	v.SetDefault("min_edge_weight", 1)
	v.SetDefault("split_collaborations", false)
	v.SetDefault("extract_remixers", false)

	v.SetDefault("louvain.max_levels", 10)
	v.SetDefault("louvain.max_iterations", 100)
	v.SetDefault("louvain.min_modularity_gain", 1e-7)
	v.SetDefault("louvain.resolution", 1.0)
	v.SetDefault("louvain.moves_file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("output.dir", "setlist_output")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// Load reads path (if not empty) into v, unmarshals and validates. Every
// failure wraps diagnostics.ErrInvalidConfiguration.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", diagnostics.ErrInvalidConfiguration, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", diagnostics.ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the validated default configuration.
func Default() *Config {
	cfg, err := Load(New(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks value ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", diagnostics.ErrInvalidConfiguration, formatValidationError(err))
	}
	if c.RequireSeed && c.CommunityDetectionSeed == nil {
		return fmt.Errorf("%w: require_seed is set but community_detection_seed is not", diagnostics.ErrInvalidConfiguration)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// first error only
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: %q is not one of [%s]", field, e.Value(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}

// Keep is the lowest score worth holding in memory after scoring: every
// merge candidate and every diagnostic pair lies above it.
func (c *Config) Keep() float64 {
	return min(c.SimilarityThreshold, c.DiagnosticLowerBound)
}

// LouvainAlgorithm converts the louvain section into the algorithm's config.
func (c *Config) LouvainAlgorithm(logger zerolog.Logger) *louvain.Config {
	lc := louvain.NewConfig()
	lc.Set("algorithm.max_levels", c.Louvain.MaxLevels)
	lc.Set("algorithm.max_iterations", c.Louvain.MaxIterations)
	lc.Set("algorithm.min_modularity_gain", c.Louvain.MinModularityGain)
	lc.Set("algorithm.resolution", c.Louvain.Resolution)
	lc.Set("logging.level", c.Logging.Level)
	if c.CommunityDetectionSeed != nil {
		lc.Set("algorithm.random_seed", *c.CommunityDetectionSeed)
	}
	lc.SetLogger(logger)
	return lc
}

// CreateLogger creates a console logger at the configured level.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "setlistgraph").Logger()
}
