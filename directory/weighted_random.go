package directory

import (
	"fmt"
	"math/rand"
)

// WeightedRandomBalancer selects endpoints probabilistically based on their
// weight. An endpoint with weight 10 gets roughly 2x the traffic of one
// with weight 5.
//
// Best for: heterogeneous portals (e.g., some peers have more capacity).
//
// Algorithm:
//  1. Sum all weights → totalWeight
//  2. Generate random number r in [0, totalWeight)
//  3. Subtract each endpoint's weight from r until r < 0
//  4. The endpoint that makes r negative is selected
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(endpoints []Endpoint) (Endpoint, error) {
	if len(endpoints) == 0 {
		return Endpoint{}, fmt.Errorf("ttp: directory: no endpoints available")
	}

	totalWeight := 0
	for _, e := range endpoints {
		totalWeight += e.Weight
	}
	if totalWeight <= 0 {
		return endpoints[rand.Intn(len(endpoints))], nil
	}

	r := rand.Intn(totalWeight)
	for _, e := range endpoints {
		r -= e.Weight
		if r < 0 {
			return e, nil
		}
	}

	return Endpoint{}, fmt.Errorf("ttp: directory: unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
