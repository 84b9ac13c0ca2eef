package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/setlist-graph/pkg/diagnostics"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.SimilarityThreshold)
	assert.Equal(t, 65.0, cfg.DiagnosticLowerBound)
	assert.True(t, cfg.CaseSensitive)
	assert.Equal(t, "ratio", cfg.Scorer)
	assert.Equal(t, "lexicographic", cfg.CanonicalRule)
	assert.Equal(t, []string{"DJ*", "Artist*", "RemixOrEdit*"}, cfg.ContributingRoleColumns)
	assert.Equal(t, []string{"ID", "Unknown Artist", "?"}, cfg.ProtectedTokens)
	assert.Nil(t, cfg.CommunityDetectionSeed)
	assert.Equal(t, 5000, cfg.MaxDistinctNames)
	assert.Equal(t, 1, cfg.MinEdgeWeight)
	assert.Equal(t, 10, cfg.Louvain.MaxLevels)
	assert.Equal(t, 100, cfg.Louvain.MaxIterations)
	assert.Equal(t, 1e-7, cfg.Louvain.MinModularityGain)
	assert.Equal(t, 65.0, cfg.Keep())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setlistgraph.yaml")
	body := `
similarity_threshold: 85
scorer: levenshtein
community_detection_seed: 7
contributing_role_columns: ["DJ", "Support"]
louvain:
  max_levels: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 85.0, cfg.SimilarityThreshold)
	assert.Equal(t, "levenshtein", cfg.Scorer)
	require.NotNil(t, cfg.CommunityDetectionSeed)
	assert.Equal(t, int64(7), *cfg.CommunityDetectionSeed)
	assert.Equal(t, []string{"DJ", "Support"}, cfg.ContributingRoleColumns)
	assert.Equal(t, 3, cfg.Louvain.MaxLevels)
	assert.Equal(t, 100, cfg.Louvain.MaxIterations)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SETLISTGRAPH_SIMILARITY_THRESHOLD", "90")
	t.Setenv("SETLISTGRAPH_LOUVAIN_MAX_ITERATIONS", "5")
	t.Setenv("SETLISTGRAPH_COMMUNITY_DETECTION_SEED", "11")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Louvain.MaxIterations)
	require.NotNil(t, cfg.CommunityDetectionSeed)
	assert.Equal(t, int64(11), *cfg.CommunityDetectionSeed)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"ThresholdAbove100", "similarity_threshold", 101.0},
		{"NegativeThreshold", "similarity_threshold", -1.0},
		{"LowerBoundAbove100", "diagnostic_lower_bound", 150.0},
		{"UnknownScorer", "scorer", "jaro"},
		{"UnknownRule", "canonical_rule", "longest"},
		{"NegativeWorkers", "workers", -2},
		{"NoColumns", "contributing_role_columns", []string{}},
		{"ZeroEdgeWeight", "min_edge_weight", 0},
		{"ZeroResolution", "louvain.resolution", 0.0},
		{"RequireSeedWithoutSeed", "require_seed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.value)
			_, err := Load(v, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, diagnostics.ErrInvalidConfiguration)
		})
	}
}

func TestRequireSeedWithSeed(t *testing.T) {
	v := New()
	v.Set("require_seed", true)
	v.Set("community_detection_seed", 3)
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *cfg.CommunityDetectionSeed)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, diagnostics.ErrInvalidConfiguration)
}

func TestLouvainAlgorithm(t *testing.T) {
	cfg := Default()
	lc := cfg.LouvainAlgorithm(zerolog.Nop())
	assert.False(t, lc.HasSeed())
	assert.Equal(t, 10, lc.MaxLevels())

	seed := int64(99)
	cfg.CommunityDetectionSeed = &seed
	cfg.Louvain.Resolution = 0.5
	lc = cfg.LouvainAlgorithm(zerolog.Nop())
	assert.True(t, lc.HasSeed())
	assert.Equal(t, int64(99), lc.RandomSeed())
	assert.Equal(t, 0.5, lc.Resolution())
}
