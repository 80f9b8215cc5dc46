package trial

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/adaptive-trial/pkg/mathutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many replications a worker runs between
// context checks.
const cancelCheckInterval = 4096

// Options controls how a Runner executes replications.
type Options struct {
	// Seed is the base seed. Scenario k of a Run uses ScenarioSeed(Seed, k).
	Seed uint64
	// Workers bounds the number of goroutines; values < 1 use GOMAXPROCS.
	Workers int
}

// Runner executes scenarios on a bounded worker pool.
type Runner struct {
	logger  *zap.Logger
	seed    uint64
	workers int
}

// Report is the output of one Run across several scenarios.
type Report struct {
	RunID        string           `json:"runId"`
	Seed         uint64           `json:"seed"`
	Replications int              `json:"replications"`
	Design       Design           `json:"design"`
	Results      []ScenarioResult `json:"results"`
	Duration     time.Duration    `json:"duration"`
}

// ScenarioSeed derives the seed of scenario k in a Run from the base seed.
// Scenario 0 uses the base seed itself, so RunScenario with the same seed
// reproduces it. Later scenarios hash k into the seed (splitmix64), which
// keeps adjacent base seeds from sharing streams across scenarios.
func ScenarioSeed(seed uint64, k int) uint64 {
	if k == 0 {
		return seed
	}
	z := seed + uint64(k)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{logger: logger, seed: opts.Seed, workers: workers}
}

// Run validates the design and every scenario, then simulates each scenario
// in order. No replication runs if any input is invalid.
func (r *Runner) Run(ctx context.Context, d Design, scenarios []Scenario, replications int) (*Report, error) {
	if err := validateInputs(d, scenarios, replications); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		RunID:        uuid.NewString(),
		Seed:         r.seed,
		Replications: replications,
		Design:       d,
		Results:      make([]ScenarioResult, 0, len(scenarios)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))

	for k, scenario := range scenarios {
		result, err := r.simulate(ctx, logger, d, scenario, replications, ScenarioSeed(r.seed, k))
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
		report.Results = append(report.Results, result)
	}
	report.Duration = time.Since(start)

	logger.Info("simulation run complete",
		zap.String("op", "trial.Run"),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("replications", replications),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// RunScenario simulates a single scenario with the given seed.
func (r *Runner) RunScenario(ctx context.Context, d Design, s Scenario, replications int, seed uint64) (ScenarioResult, error) {
	if err := validateInputs(d, []Scenario{s}, replications); err != nil {
		return ScenarioResult{}, err
	}
	return r.simulate(ctx, r.logger, d, s, replications, seed)
}

func (r *Runner) simulate(ctx context.Context, logger *zap.Logger, d Design, s Scenario, replications int, seed uint64) (ScenarioResult, error) {
	start := time.Now()

	// Each worker writes a disjoint block of outcomes, so no locking is needed.
	outcomes := make([]Outcome, replications)
	workers := min(r.workers, replications)
	block := (replications + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < replications; lo += block {
		hi := min(lo+block, replications)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				outcomes[i] = Replicate(d, s, NewStream(seed, i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScenarioResult{}, err
	}

	result := Aggregate(outcomes, d)
	result.Scenario = s
	if total := result.ZoneProbabilityTotal(); !mathutil.ProbabilitiesClose(total, 1) {
		return ScenarioResult{}, fmt.Errorf("zone probabilities of scenario %q sum to %v", s.Name, total)
	}

	logger.Debug("scenario simulated",
		zap.String("op", "trial.simulate"),
		zap.String("scenario", s.Name),
		zap.Float64("p_control", s.PControl),
		zap.Float64("true_rrr", s.TrueRRR),
		zap.Int("workers", workers),
		zap.Float64("power_adaptive", result.PowerAdaptive),
		zap.Float64("power_non_adaptive", result.PowerNonAdaptive),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func validateInputs(d Design, scenarios []Scenario, replications int) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if replications < 1 {
		return fmt.Errorf("%w: replications must be at least 1, got %d", ErrInvalidConfig, replications)
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios to simulate", ErrInvalidConfig)
	}
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
