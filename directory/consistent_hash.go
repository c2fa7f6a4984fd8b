package directory

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// ConsistentHashBalancer maps keys to endpoints using a hash ring. The same
// key always maps to the same endpoint (until the ring changes), which is
// useful for pinning a logical channel's routing-frame target to a stable
// peer across reconnects.
//
// Virtual nodes: each real endpoint is mapped to N virtual nodes on the
// ring. Without virtual nodes, a handful of endpoints can cluster together
// on the ring, causing uneven load distribution. 100 virtual nodes per
// endpoint gives statistical uniformity.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32
	nodes    map[uint32]Endpoint
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per
// endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]Endpoint),
	}
}

// Add places an endpoint onto the hash ring with N virtual nodes. Each
// virtual node is hashed from "{addr}#{i}" to spread evenly across the
// ring.
func (b *ConsistentHashBalancer) Add(ep Endpoint) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", ep.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = ep
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// PickKey finds the endpoint responsible for the given key by hashing it
// and locating the first node clockwise on the ring, wrapping around to
// the first node if the hash exceeds all of them.
func (b *ConsistentHashBalancer) PickKey(key string) (Endpoint, error) {
	if len(b.ring) == 0 {
		return Endpoint{}, fmt.Errorf("ttp: directory: hash ring is empty")
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]], nil
}

// Pick satisfies the Balancer interface by rebuilding the ring from
// endpoints on every call and picking with an empty key, which always
// resolves to the first ring position. Callers that need key affinity
// should use PickKey directly instead.
func (b *ConsistentHashBalancer) Pick(endpoints []Endpoint) (Endpoint, error) {
	if len(endpoints) == 0 {
		return Endpoint{}, fmt.Errorf("ttp: directory: no endpoints available")
	}
	fresh := NewConsistentHashBalancer()
	for _, e := range endpoints {
		fresh.Add(e)
	}
	return fresh.PickKey("")
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
