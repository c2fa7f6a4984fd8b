// Package directory also hosts the balancer strategies a pool uses to pick
// one endpoint out of a discovered set.
package directory

// Balancer selects one endpoint from a discovered set. A pool calls Pick
// before dialing a new portal to a named peer.
type Balancer interface {
	// Pick selects one endpoint from endpoints. Must be goroutine-safe.
	Pick(endpoints []Endpoint) (Endpoint, error)

	// Name returns the strategy name, for logging.
	Name() string
}
