package directory

import (
	"fmt"
	"sync/atomic"
)

// RoundRobinBalancer distributes picks evenly across all endpoints in
// order. Uses an atomic counter for lock-free, goroutine-safe operation.
//
// Best for: interchangeable portals of similar capacity.
type RoundRobinBalancer struct {
	counter int64
}

// Pick selects the next endpoint in round-robin order.
func (b *RoundRobinBalancer) Pick(endpoints []Endpoint) (Endpoint, error) {
	if len(endpoints) == 0 {
		return Endpoint{}, fmt.Errorf("ttp: directory: no endpoints available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(endpoints))
	return endpoints[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
