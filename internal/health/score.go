package health

import (
	"math"
	"time"
)

// EWMA folds sample into the running average. The first sample seeds it.
func EWMA(avg, sample, alpha float64, first bool) float64 {
	if first {
		return sample
	}
	return alpha*sample + (1-alpha)*avg
}

// LatencyPenalty is 0 at or below target and rises linearly to 100 at
// LatencyCeilingFactor times target.
func LatencyPenalty(avgMs float64, target time.Duration) float64 {
	targetMs := float64(target.Milliseconds())
	if targetMs <= 0 || avgMs <= targetMs {
		return 0
	}
	ceiling := targetMs * LatencyCeilingFactor
	if avgMs >= ceiling {
		return MaxScore
	}
	return (avgMs - targetMs) / (ceiling - targetMs) * MaxScore
}

// Score combines failure rate, conflict rate and latency penalty into [0,100].
func Score(failureRatePct, conflictRatePct, latencyPenalty float64) float64 {
	s := MaxScore -
		failureRatePct*FailureWeight -
		conflictRatePct*ConflictWeight -
		latencyPenalty*LatencyWeight
	return math.Round(clamp(s, 0, MaxScore)*100) / 100
}

// Backoff suggests how long a device should wait before its next retry.
// A healthy device retries after BaseBackoff; each BackoffStepSize points
// of lost score doubles the delay, capped at MaxBackoff.
func Backoff(score float64) time.Duration {
	steps := int((MaxScore - clamp(score, 0, MaxScore)) / BackoffStepSize)
	d := BaseBackoff << steps
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
