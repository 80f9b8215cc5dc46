package trial

import (
	"math"

	"github.com/iwvelando/adaptive-trial/pkg/mathutil"
	"github.com/montanaflynn/stats"
)

// Aggregate reduces the outcomes of one scenario into its operating
// characteristics. Conditional power is 0 and average sample sizes are nil
// for a zone no replication entered.
func Aggregate(outcomes []Outcome, d Design) ScenarioResult {
	n := len(outcomes)
	result := ScenarioResult{
		Replications:             n,
		AvgSampleSizeNonAdaptive: d.NInitial,
		Zones:                    make([]ZoneSummary, 0, len(Zones)),
	}

	var (
		significantAdaptive, significantNonAdaptive int
		sizes                                       = make([]float64, 0, n)
		zoneSizes                                   = make(map[Zone][]float64, len(Zones))
		zoneAdaptive                                = make(map[Zone]int, len(Zones))
		zoneNonAdaptive                             = make(map[Zone]int, len(Zones))
	)

	for _, out := range outcomes {
		sizes = append(sizes, out.SampleSizeAdaptive)
		zoneSizes[out.Zone] = append(zoneSizes[out.Zone], out.SampleSizeAdaptive)
		if out.StoppedEarly {
			result.EarlyStops++
		}
		if out.FinalZAdaptive >= d.ZAlphaFinal {
			significantAdaptive++
			zoneAdaptive[out.Zone]++
		}
		if out.FinalZNonAdaptive >= d.ZAlphaFinal {
			significantNonAdaptive++
			zoneNonAdaptive[out.Zone]++
		}
	}

	result.PowerAdaptive = mathutil.Fraction(significantAdaptive, n)
	result.PowerNonAdaptive = mathutil.Fraction(significantNonAdaptive, n)
	if n > 0 {
		result.PowerAdaptiveSE = math.Sqrt(result.PowerAdaptive * (1 - result.PowerAdaptive) / float64(n))
	}
	if mean, err := stats.Mean(sizes); err == nil {
		result.AvgSampleSizeAdaptive = mean
	}

	for _, zone := range Zones {
		count := len(zoneSizes[zone])
		summary := ZoneSummary{
			Zone:             zone,
			Count:            count,
			Probability:      mathutil.Fraction(count, n),
			PowerAdaptive:    mathutil.Fraction(zoneAdaptive[zone], count),
			PowerNonAdaptive: mathutil.Fraction(zoneNonAdaptive[zone], count),
		}
		if mean, err := stats.Mean(zoneSizes[zone]); err == nil {
			fixed := d.NInitial
			summary.AvgSampleSizeAdaptive = &mean
			summary.AvgSampleSizeNonAdaptive = &fixed
		}
		result.Zones = append(result.Zones, summary)
	}

	return result
}
