// Package diagnostics holds the end-of-run report that every pipeline phase
// writes its non-fatal findings into, plus the fatal error taxonomy.
package diagnostics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fatal errors. Anything else found during a run is recorded in a Report.
var (
	ErrEmptyCorpus          = errors.New("empty corpus")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Kind classifies a non-fatal finding.
type Kind string

const (
	MalformedRecord        Kind = "malformed_record"
	AmbiguousMergeConflict Kind = "ambiguous_merge_conflict"
	CandidateSpaceWarning  Kind = "candidate_space_warning"
)

// MaxSamplesPerKind bounds how many messages are kept per kind.
const MaxSamplesPerKind = 20

// Report accumulates non-fatal findings for one batch run. It is written by
// one phase at a time and is not safe for concurrent use.
type Report struct {
	RunID     string             `json:"run_id"`
	StartedAt time.Time          `json:"started_at"`
	Counts    map[Kind]int       `json:"counts"`
	Samples   map[Kind][]string  `json:"samples"`
	Phases    []PhaseTiming      `json:"phases"`
	Stats     map[string]float64 `json:"stats"`
	logger    zerolog.Logger
}

// PhaseTiming records how long one pipeline phase took.
type PhaseTiming struct {
	Phase     string `json:"phase"`
	RuntimeMS int64  `json:"runtime_ms"`
}

// NewReport creates an empty report. Each recorded finding is also written to
// logger at warn level.
func NewReport(logger zerolog.Logger) *Report {
	id := uuid.New().String()
	return &Report{
		RunID:     id,
		StartedAt: time.Now().UTC(),
		Counts:    make(map[Kind]int),
		Samples:   make(map[Kind][]string),
		Stats:     make(map[string]float64),
		logger:    logger.With().Str("run_id", id).Logger(),
	}
}

// Add records one finding of the given kind.
func (r *Report) Add(kind Kind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Counts[kind]++
	if len(r.Samples[kind]) < MaxSamplesPerKind {
		r.Samples[kind] = append(r.Samples[kind], msg)
	}
	r.logger.Warn().Str("kind", string(kind)).Msg(msg)
}

// Count returns the number of findings of kind.
func (r *Report) Count(kind Kind) int {
	return r.Counts[kind]
}

// Total returns the number of findings across all kinds.
func (r *Report) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Kinds returns the kinds with at least one finding, sorted.
func (r *Report) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.Counts))
	for k := range r.Counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Phase records the duration of a finished phase.
func (r *Report) Phase(name string, d time.Duration) {
	r.Phases = append(r.Phases, PhaseTiming{Phase: name, RuntimeMS: d.Milliseconds()})
	r.logger.Debug().Str("phase", name).Dur("elapsed", d).Msg("Phase completed")
}

// SetStat stores a named scalar such as the final modularity.
func (r *Report) SetStat(name string, value float64) {
	r.Stats[name] = value
}

// Logger returns the report's side-channel logger.
func (r *Report) Logger() zerolog.Logger {
	return r.logger
}

// Summary logs the counts by kind at info level.
func (r *Report) Summary() {
	ev := r.logger.Info().Int("total", r.Total())
	for _, k := range r.Kinds() {
		ev = ev.Int(string(k), r.Counts[k])
	}
	ev.Msg("Diagnostic report")
}
