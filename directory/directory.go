// Package directory provides discovery of portal endpoints: registering a
// portal's advertised address under a logical name with a TTL lease, and
// looking up the current address set for a name.
//
// Registration uses an etcd lease so a crashed or partitioned portal is
// removed automatically once its lease expires.
package directory

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// keyPrefix roots every registration under a namespace distinct from any
// other system sharing the etcd cluster.
const keyPrefix = "/ttp/"

// Endpoint is one running instance of a named portal.
type Endpoint struct {
	Addr   string // dialable address, e.g. "127.0.0.1:4020"
	Weight int    // relative weight for WeightedRandom
}

// Directory is the interface for registering and discovering portal
// endpoints. EtcdDirectory is the production implementation; tests can
// substitute a MemDirectory.
type Directory interface {
	// Register adds an endpoint under name with a TTL lease (seconds). The
	// entry is removed automatically if KeepAlive stops.
	Register(name string, ep Endpoint, ttl int64) error

	// Deregister removes an endpoint from name. Called during graceful
	// shutdown, before the listener is closed.
	Deregister(name string, addr string) error

	// Discover returns all currently registered endpoints for name.
	Discover(name string) ([]Endpoint, error)

	// Watch emits the updated endpoint set for name whenever it changes.
	Watch(name string) <-chan []Endpoint
}

// EtcdDirectory implements Directory using etcd v3.
type EtcdDirectory struct {
	client *clientv3.Client
}

// NewEtcdDirectory connects to the given etcd endpoints.
func NewEtcdDirectory(endpoints []string) (*EtcdDirectory, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("ttp: directory: connect to etcd: %w", err)
	}
	return &EtcdDirectory{client: c}, nil
}

func (d *EtcdDirectory) key(name, addr string) string {
	return keyPrefix + name + "/" + addr
}

// Register grants a TTL lease, puts the endpoint under it, and starts a
// background goroutine renewing the lease until it is revoked or the
// process exits. leaseID is kept local (not stored on the struct) so
// concurrent registrations on a shared directory never race over it.
func (d *EtcdDirectory) Register(name string, ep Endpoint, ttl int64) error {
	ctx := context.Background()

	lease, err := d.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("ttp: directory: grant lease: %w", err)
	}

	val, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("ttp: directory: marshal endpoint: %w", err)
	}

	if _, err := d.client.Put(ctx, d.key(name, ep.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("ttp: directory: put endpoint: %w", err)
	}

	keepAlive, err := d.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("ttp: directory: start keepalive: %w", err)
	}
	go func() {
		for range keepAlive {
		}
	}()
	return nil
}

// Deregister removes the endpoint immediately, ahead of lease expiry.
func (d *EtcdDirectory) Deregister(name string, addr string) error {
	ctx := context.Background()
	if _, err := d.client.Delete(ctx, d.key(name, addr)); err != nil {
		return fmt.Errorf("ttp: directory: delete endpoint: %w", err)
	}
	return nil
}

// Discover lists all endpoints currently registered under name.
func (d *EtcdDirectory) Discover(name string) ([]Endpoint, error) {
	ctx := context.Background()
	resp, err := d.client.Get(ctx, keyPrefix+name+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("ttp: directory: get endpoints: %w", err)
	}
	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Watch uses etcd's server-push Watch API to emit the updated endpoint set
// for name on every change, avoiding polling.
func (d *EtcdDirectory) Watch(name string) <-chan []Endpoint {
	ctx := context.Background()
	out := make(chan []Endpoint, 1)
	prefix := keyPrefix + name + "/"
	watchCh := d.client.Watch(ctx, prefix, clientv3.WithPrefix())
	go func() {
		defer close(out)
		for range watchCh {
			endpoints, err := d.Discover(name)
			if err != nil {
				continue
			}
			out <- endpoints
		}
	}()
	return out
}
