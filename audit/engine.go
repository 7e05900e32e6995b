package audit

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

// Config holds audit pipeline configuration.
type Config struct {
	// MatchThreshold is the minimum similarity for linking evidence to a
	// criterion.
	MatchThreshold float64

	// SatisfiedThreshold is the criterion-token coverage at which matched
	// evidence counts as full coverage.
	SatisfiedThreshold float64

	// IncludeSatisfied keeps satisfied findings in the output for
	// coverage reporting.
	IncludeSatisfied bool

	// Workers caps concurrent per-feature work. Zero means one worker
	// per CPU.
	Workers int
}

// DefaultConfig returns sensible audit defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:     evidence.DefaultThreshold,
		SatisfiedThreshold: DefaultSatisfiedThreshold,
		IncludeSatisfied:   true,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MatchThreshold must be in (0, 1], got %v", c.MatchThreshold)
	}
	if c.SatisfiedThreshold <= 0 || c.SatisfiedThreshold > 1 {
		return fmt.Errorf("SatisfiedThreshold must be in (0, 1], got %v", c.SatisfiedThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Engine runs requirement resolution and gap detection. It holds no mutable
// state; one engine may serve concurrent runs.
type Engine struct {
	config  Config
	matcher *evidence.Matcher
}

// New creates a new Engine with the given configuration and the built-in
// token-overlap scorer. A zero config falls back to defaults.
func New(cfg Config) (*Engine, error) {
	return NewWithScorer(cfg, nil)
}

// NewWithScorer creates a new Engine using a caller-supplied similarity
// scorer. The scorer must be pure and deterministic.
func NewWithScorer(cfg Config, scorer evidence.Scorer) (*Engine, error) {
	if cfg.MatchThreshold == 0 && cfg.SatisfiedThreshold == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	matcher, err := evidence.New(evidence.Config{Threshold: cfg.MatchThreshold}, scorer)
	if err != nil {
		return nil, err
	}
	return &Engine{config: cfg, matcher: matcher}, nil
}

// MustNew creates a new Engine, panicking on invalid config.
// Use for known-good configurations.
func MustNew(cfg Config) *Engine {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// NewDefault creates an Engine with default configuration.
func NewDefault() *Engine {
	return MustNew(DefaultConfig())
}

// Resolution is the per-feature outcome of canonical state building. Each
// feature lands in exactly one of the two maps: a failed chain appears in
// Failures and never blocks unrelated chains.
type Resolution struct {
	States   map[string]*requirement.CanonicalFeatureState
	Failures map[string]error
}

// BuildCanonicalState normalizes a document corpus, builds feature chains
// and folds each chain into its canonical state. Corpus-level breaches
// (duplicate document ids, duplicate sequence numbers) fail the whole call;
// chain-scoped validation and dangling-reference errors land in Failures.
func (e *Engine) BuildCanonicalState(docs []requirement.Document) (*Resolution, error) {
	norm, err := requirement.Normalize(docs)
	if err != nil {
		return nil, fmt.Errorf("normalize documents: %w", err)
	}

	res := &Resolution{
		States:   make(map[string]*requirement.CanonicalFeatureState),
		Failures: make(map[string]error),
	}
	for key, verr := range norm.Failures {
		res.Failures[key] = verr
	}

	chains := requirement.BuildChains(norm.Valid)

	type outcome struct {
		key   string
		state *requirement.CanonicalFeatureState
		err   error
	}
	outcomes := make([]outcome, len(chains))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers())
	for i, chain := range chains {
		wg.Add(1)
		go func(i int, chain requirement.FeatureChain) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			state, err := requirement.Resolve(chain)
			outcomes[i] = outcome{key: chain.FeatureKey, state: state, err: err}
		}(i, chain)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			res.Failures[o.key] = o.err
			continue
		}
		res.States[o.key] = o.state
	}
	return res, nil
}

// DetectResult carries the findings of one detection pass plus non-fatal
// warnings such as degraded evidence matching.
type DetectResult struct {
	Findings []Finding
	Warnings []Warning
}

// DetectGaps matches the full fact list against every canonical state and
// classifies the outcome. Findings come back sorted by severity, most
// severe first, then by feature key. Facts claimed by no feature at all
// become extra findings, including facts hinting at a feature that produced
// no canonical state.
func (e *Engine) DetectGaps(states map[string]*requirement.CanonicalFeatureState, facts []evidence.Fact) *DetectResult {
	keys := make([]string, 0, len(states))
	for key := range states {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	perFeature := make([][]Finding, len(keys))
	claimed := make([]map[int]bool, len(keys))
	degraded := make([]bool, len(keys))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers())
	for i, key := range keys {
		wg.Add(1)
		go func(i int, state *requirement.CanonicalFeatureState) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			match := e.matcher.Match(state, facts)
			perFeature[i] = classifyFeature(state, match, e.config.SatisfiedThreshold)
			claimed[i] = match.MatchedFacts
			degraded[i] = match.Degraded
		}(i, states[key])
	}
	wg.Wait()

	result := &DetectResult{}
	anyClaimed := make(map[int]bool)
	for i, findings := range perFeature {
		result.Findings = append(result.Findings, findings...)
		for idx := range claimed[i] {
			anyClaimed[idx] = true
		}
		if degraded[i] {
			result.Warnings = append(result.Warnings, Warning{
				Code:       WarnEvidenceMatchingDegraded,
				FeatureKey: keys[i],
				Message:    "some evidence was linked by similarity rather than exact text match",
			})
		}
	}

	for i := range facts {
		if anyClaimed[i] {
			continue
		}
		result.Findings = append(result.Findings, extraFinding(facts[i]))
	}

	if !e.config.IncludeSatisfied {
		kept := result.Findings[:0]
		for _, f := range result.Findings {
			if f.Category == GapSatisfied {
				continue
			}
			kept = append(kept, f)
		}
		result.Findings = kept
	}

	sortFindings(result.Findings)
	return result
}

// RunResult bundles one complete audit pass.
type RunResult struct {
	Resolution *Resolution
	Findings   []Finding
	Warnings   []Warning
}

// Run executes the full pipeline over documents and facts and records run
// metrics.
func (e *Engine) Run(docs []requirement.Document, facts []evidence.Fact) (*RunResult, error) {
	timer := prometheus.NewTimer(runDuration)
	defer timer.ObserveDuration()

	resolution, err := e.BuildCanonicalState(docs)
	if err != nil {
		return nil, err
	}

	det := e.DetectGaps(resolution.States, facts)
	observeRun(resolution, det)

	return &RunResult{
		Resolution: resolution,
		Findings:   det.Findings,
		Warnings:   det.Warnings,
	}, nil
}

// sortFindings orders findings by severity rank, then feature key. The sort
// is stable so classification order breaks remaining ties.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return findings[i].FeatureKey < findings[j].FeatureKey
	})
}

func (e *Engine) workers() int {
	if e.config.Workers > 0 {
		return e.config.Workers
	}
	return runtime.GOMAXPROCS(0)
}
