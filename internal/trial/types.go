// Package trial simulates a two-stage adaptive ("promising zone") trial with
// a binary endpoint and aggregates its operating characteristics across Monte
// Carlo replications.
//
// Results are bit-reproducible for a given seed with this package's engine
// (math/rand/v2 PCG streams feeding gonum's binomial sampler), whatever the
// worker count. Replication i of a scenario seeded with s reads the PCG
// stream (s, i); scenario k of a Run is seeded with ScenarioSeed(base, k).
// A different random engine reproduces the distribution of the results, not
// the exact draws.
package trial

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/adaptive-trial/pkg/mathutil"
)

// ErrInvalidConfig is wrapped by every design or scenario validation failure.
var ErrInvalidConfig = errors.New("invalid trial configuration")

// Zone classifies the interim result and drives the adaptation decision.
type Zone int

const (
	ZoneUnfavorable Zone = iota
	ZonePromising
	ZoneFavorable
)

// Zones lists every zone in reporting order.
var Zones = [...]Zone{ZoneUnfavorable, ZonePromising, ZoneFavorable}

func (z Zone) String() string {
	switch z {
	case ZoneUnfavorable:
		return "Unfavorable"
	case ZonePromising:
		return "Promising"
	case ZoneFavorable:
		return "Favorable"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// MarshalText renders the zone by name in JSON and YAML output.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (z *Zone) UnmarshalText(text []byte) error {
	for _, candidate := range Zones {
		if candidate.String() == string(text) {
			*z = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown zone %q", string(text))
}

// Scenario holds the true event rates for one simulated trial population.
type Scenario struct {
	Name     string  `json:"name"`
	PControl float64 `json:"pControl"`
	TrueRRR  float64 `json:"trueRRR"`
}

// PExperimental is the event probability in the experimental arm.
func (s Scenario) PExperimental() float64 {
	return s.PControl * (1 - s.TrueRRR)
}

// Validate rejects scenarios whose event probabilities are not in (0, 1).
func (s Scenario) Validate() error {
	if !mathutil.IsOpenProbability(s.PControl) {
		return fmt.Errorf("%w: scenario %q: pControl must be in (0,1), got %v", ErrInvalidConfig, s.Name, s.PControl)
	}
	if !mathutil.IsOpenProbability(s.TrueRRR) {
		return fmt.Errorf("%w: scenario %q: trueRRR must be in (0,1), got %v", ErrInvalidConfig, s.Name, s.TrueRRR)
	}
	if !mathutil.IsOpenProbability(s.PExperimental()) {
		return fmt.Errorf("%w: scenario %q: derived experimental probability %v is not in (0,1)", ErrInvalidConfig, s.Name, s.PExperimental())
	}
	return nil
}

// Design holds the fixed constants of the two-stage design.
type Design struct {
	NInitial        float64 `json:"nInitial"`
	InterimFraction float64 `json:"interimFraction"`
	ZAlphaInterim   float64 `json:"zAlphaInterim"`
	ZAlphaFinal     float64 `json:"zAlphaFinal"`
	RRRLower        float64 `json:"rrrLower"`
	RRRUpper        float64 `json:"rrrUpper"`
	TargetCP        float64 `json:"targetCP"`
	Alpha           float64 `json:"alpha"`
	NMaxCap         float64 `json:"nMaxCap"`
}

// NInterim is the total enrollment at the interim look, rounded to a whole
// subject count.
func (d Design) NInterim() float64 {
	return math.Round(d.NInitial * d.InterimFraction)
}

// Validate checks every design invariant. It is called before any
// replication runs.
func (d Design) Validate() error {
	switch {
	case !(d.NInitial > 0):
		return fmt.Errorf("%w: nInitial must be positive, got %v", ErrInvalidConfig, d.NInitial)
	case !(d.InterimFraction > 0 && d.InterimFraction <= 1):
		return fmt.Errorf("%w: interimFraction must be in (0,1], got %v", ErrInvalidConfig, d.InterimFraction)
	case d.NInterim() < 2:
		return fmt.Errorf("%w: interim enrollment %v leaves an empty arm", ErrInvalidConfig, d.NInterim())
	case !isEven(d.NInitial) || !isEven(d.NInterim()) || !isEven(d.NMaxCap):
		return fmt.Errorf("%w: nInitial %v, interim enrollment %v and nMaxCap %v must be even so arms stay balanced",
			ErrInvalidConfig, d.NInitial, d.NInterim(), d.NMaxCap)
	case !(d.RRRLower >= 0 && d.RRRLower < d.RRRUpper && d.RRRUpper <= 1):
		return fmt.Errorf("%w: promising zone requires 0 <= lower < upper <= 1, got [%v, %v]", ErrInvalidConfig, d.RRRLower, d.RRRUpper)
	case !mathutil.IsOpenProbability(d.TargetCP):
		return fmt.Errorf("%w: targetCP must be in (0,1), got %v", ErrInvalidConfig, d.TargetCP)
	case !mathutil.IsOpenProbability(d.Alpha):
		return fmt.Errorf("%w: alpha must be in (0,1), got %v", ErrInvalidConfig, d.Alpha)
	case !mathutil.IsFinite(d.ZAlphaInterim) || !mathutil.IsFinite(d.ZAlphaFinal):
		return fmt.Errorf("%w: critical values must be finite", ErrInvalidConfig)
	case !(d.NMaxCap >= d.NInitial):
		return fmt.Errorf("%w: nMaxCap %v must be at least nInitial %v", ErrInvalidConfig, d.NMaxCap, d.NInitial)
	}
	return nil
}

// Outcome is the result of one simulated trial.
type Outcome struct {
	Zone               Zone
	InterimZ           float64
	ObservedRRR        float64
	StoppedEarly       bool
	FinalZAdaptive     float64
	FinalZNonAdaptive  float64
	SampleSizeAdaptive float64
}

// ZoneSummary holds the operating characteristics conditional on one zone.
// The average sample sizes are nil when the zone was never entered.
type ZoneSummary struct {
	Zone                     Zone     `json:"zone"`
	Count                    int      `json:"count"`
	Probability              float64  `json:"probability"`
	PowerAdaptive            float64  `json:"powerAdaptive"`
	PowerNonAdaptive         float64  `json:"powerNonAdaptive"`
	AvgSampleSizeAdaptive    *float64 `json:"avgSampleSizeAdaptive"`
	AvgSampleSizeNonAdaptive *float64 `json:"avgSampleSizeNonAdaptive"`
}

// Entered reports whether at least one replication landed in the zone.
func (z ZoneSummary) Entered() bool {
	return z.Count > 0
}

// ScenarioResult aggregates every replication of one scenario.
type ScenarioResult struct {
	Scenario                 Scenario      `json:"scenario"`
	Replications             int           `json:"replications"`
	PowerAdaptive            float64       `json:"powerAdaptive"`
	PowerNonAdaptive         float64       `json:"powerNonAdaptive"`
	PowerAdaptiveSE          float64       `json:"powerAdaptiveSE"`
	AvgSampleSizeAdaptive    float64       `json:"avgSampleSizeAdaptive"`
	AvgSampleSizeNonAdaptive float64       `json:"avgSampleSizeNonAdaptive"`
	EarlyStops               int           `json:"earlyStops"`
	Zones                    []ZoneSummary `json:"zones"`
}

// ZoneProbabilityTotal sums P(zone) over every zone. Every replication lands
// in exactly one zone, so a result built by Aggregate totals 1.
func (r ScenarioResult) ZoneProbabilityTotal() float64 {
	total := 0.0
	for _, zone := range r.Zones {
		total += zone.Probability
	}
	return total
}

// ForZone returns the summary for zone z.
func (r ScenarioResult) ForZone(z Zone) (ZoneSummary, bool) {
	for _, summary := range r.Zones {
		if summary.Zone == z {
			return summary, true
		}
	}
	return ZoneSummary{}, false
}

func isEven(n float64) bool {
	return math.Mod(n, 2) == 0
}
