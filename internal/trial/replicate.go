package trial

import (
	"math"

	"github.com/iwvelando/adaptive-trial/pkg/mathutil"
)

// TwoProportionZ computes the pooled two-proportion z-statistic for a trial
// of n subjects split evenly between arms. It returns 0 when n is not
// positive or the pooled event probability is not in (0, 1).
func TwoProportionZ(eventsControl, eventsExperimental, n float64) float64 {
	if !(n > 0) {
		return 0
	}
	perArm := n / 2
	pControl := eventsControl / perArm
	pExperimental := eventsExperimental / perArm
	pooled := mathutil.ProbabilityOr((eventsControl+eventsExperimental)/n, 0)
	if pooled == 0 {
		return 0
	}
	se := math.Sqrt(pooled * (1 - pooled) * (4 / n))
	return mathutil.SafeDivide(pControl-pExperimental, se, 0)
}

// ObservedRRR is 1 - pExperimental/pControl, or 0 when undefined.
func ObservedRRR(pControl, pExperimental float64) float64 {
	ratio := mathutil.SafeDivide(pExperimental, pControl, math.NaN())
	return mathutil.FiniteOr(1-ratio, 0)
}

// Classify assigns the interim zone from the observed relative risk reduction.
func Classify(observedRRR float64, d Design) Zone {
	switch {
	case observedRRR < d.RRRLower:
		return ZoneUnfavorable
	case observedRRR <= d.RRRUpper:
		return ZonePromising
	default:
		return ZoneFavorable
	}
}

// ReestimateSampleSize returns the total sample size needed to reach the
// target conditional power after a promising interim result. The value is
// rounded up to an even count so both arms stay equal, and lies in
// [NInterim, NMaxCap].
func ReestimateSampleSize(d Design, s Scenario, observedRRR float64) float64 {
	nInterim := d.NInterim()
	var n2 float64
	delta := mathutil.SafeLog(1-observedRRR, 0)
	if delta != 0 {
		zDiff := normalQuantile(1-d.Alpha) - normalQuantile(1-d.TargetCP)
		required := mathutil.SafeDivide(zDiff*zDiff, delta*delta/(4/s.PControl), 0)
		n2 = math.Max(0, required-nInterim)
		n2 = 2 * math.Ceil(n2/2)
	}
	return math.Min(nInterim+n2, d.NMaxCap)
}

// Replicate simulates one trial. All draws come from rng, in a fixed order:
// interim control, interim experimental, non-adaptive stage 2 control and
// experimental, then adaptive stage 2 control and experimental when the
// adaptive path enrolls more subjects.
func Replicate(d Design, s Scenario, rng Sampler) Outcome {
	pExperimental := s.PExperimental()
	nInterim := d.NInterim()
	interimArm := nInterim / 2

	eventsControl := rng.Binomial(interimArm, s.PControl)
	eventsExperimental := rng.Binomial(interimArm, pExperimental)

	out := Outcome{
		InterimZ: TwoProportionZ(eventsControl, eventsExperimental, nInterim),
		ObservedRRR: ObservedRRR(
			mathutil.SafeDivide(eventsControl, interimArm, 0),
			mathutil.SafeDivide(eventsExperimental, interimArm, 0),
		),
	}
	out.Zone = Classify(out.ObservedRRR, d)

	finalSize := d.NInitial
	switch out.Zone {
	case ZonePromising:
		finalSize = ReestimateSampleSize(d, s, out.ObservedRRR)
	case ZoneFavorable:
		if out.InterimZ >= d.ZAlphaInterim {
			finalSize = nInterim
			out.StoppedEarly = true
		}
	}
	out.SampleSizeAdaptive = finalSize

	fixedArm := (d.NInitial - nInterim) / 2
	out.FinalZNonAdaptive = TwoProportionZ(
		eventsControl+rng.Binomial(fixedArm, s.PControl),
		eventsExperimental+rng.Binomial(fixedArm, pExperimental),
		d.NInitial,
	)

	adaptiveControl, adaptiveExperimental := eventsControl, eventsExperimental
	if stage2 := finalSize - nInterim; stage2 > 0 {
		adaptiveControl += rng.Binomial(stage2/2, s.PControl)
		adaptiveExperimental += rng.Binomial(stage2/2, pExperimental)
	}
	out.FinalZAdaptive = TwoProportionZ(adaptiveControl, adaptiveExperimental, finalSize)

	return out
}
