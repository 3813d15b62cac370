package boost

import (
	"math/rand/v2"
)

// SamplingSet is a bootstrap-with-replacement weighting of the training
// cases: Multiplicity(i) is how many times case i was drawn for this bag.
type SamplingSet struct {
	counts []int
}

// Multiplicity returns the bag weight of case i.
func (s *SamplingSet) Multiplicity(i int) int { return s.counts[i] }

// generateSamplingSets builds the inner bags. A requested count of zero
// yields one unbagged set covering the full training data with weight one.
func generateSamplingSets(rng *rand.Rand, caseCount, setCount int) []*SamplingSet {
	if setCount == 0 {
		counts := make([]int, caseCount)
		for i := range counts {
			counts[i] = 1
		}
		return []*SamplingSet{{counts: counts}}
	}

	sets := make([]*SamplingSet, setCount)
	for s := 0; s < setCount; s++ {
		counts := make([]int, caseCount)
		for d := 0; d < caseCount; d++ {
			counts[rng.IntN(caseCount)]++
		}
		sets[s] = &SamplingSet{counts: counts}
	}
	return sets
}
