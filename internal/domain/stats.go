package domain

// ComputeBeliefStats derives aggregate statistics from a belief slice. Both
// backends share this so the pg and in-memory stores report identically.
func ComputeBeliefStats(beliefs []Belief) *BeliefStats {
	stats := &BeliefStats{
		ByCategory:         make(map[BeliefCategory]int),
		ByConfidenceBucket: make(map[string]int),
	}

	var confidenceSum float64
	for _, b := range beliefs {
		stats.TotalBeliefs++
		if !b.Active {
			continue
		}
		stats.ActiveBeliefs++
		confidenceSum += b.Confidence
		if b.Confidence >= 0.8 {
			stats.HighConfidenceBeliefs++
		}
		stats.ByCategory[b.Category]++
		stats.ByConfidenceBucket[ConfidenceBucket(b.Confidence)]++
	}
	stats.InactiveBeliefs = stats.TotalBeliefs - stats.ActiveBeliefs
	if stats.ActiveBeliefs > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.ActiveBeliefs)
	}
	return stats
}
