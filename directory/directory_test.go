package directory

import (
	"testing"
	"time"
)

func TestMemDirectoryRegisterDiscover(t *testing.T) {
	d := NewMemDirectory()
	if err := d.Register("portal-a", Endpoint{Addr: "127.0.0.1:4020", Weight: 1}, 10); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := d.Discover("portal-a")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(got) != 1 || got[0].Addr != "127.0.0.1:4020" {
		t.Fatalf("Discover = %v, want one endpoint at 127.0.0.1:4020", got)
	}
}

func TestMemDirectoryDeregister(t *testing.T) {
	d := NewMemDirectory()
	d.Register("portal-a", Endpoint{Addr: "a"}, 10)
	d.Register("portal-a", Endpoint{Addr: "b"}, 10)

	if err := d.Deregister("portal-a", "a"); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}

	got, _ := d.Discover("portal-a")
	if len(got) != 1 || got[0].Addr != "b" {
		t.Fatalf("Discover after Deregister = %v, want only b", got)
	}
}

func TestMemDirectoryDiscoverUnknownNameIsEmpty(t *testing.T) {
	d := NewMemDirectory()
	got, err := d.Discover("nothing-registered")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Discover on unknown name = %v, want empty", got)
	}
}

func TestMemDirectoryWatchEmitsOnRegister(t *testing.T) {
	d := NewMemDirectory()
	ch := d.Watch("portal-a")

	d.Register("portal-a", Endpoint{Addr: "a"}, 10)

	select {
	case got := <-ch:
		if len(got) != 1 || got[0].Addr != "a" {
			t.Fatalf("Watch emitted %v, want one endpoint a", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not emit after Register")
	}
}

func TestRoundRobinBalancerCyclesAllEndpoints(t *testing.T) {
	b := &RoundRobinBalancer{}
	endpoints := []Endpoint{{Addr: "a"}, {Addr: "b"}, {Addr: "c"}}

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		seen[ep.Addr]++
	}
	for _, ep := range endpoints {
		if seen[ep.Addr] != 3 {
			t.Errorf("endpoint %s picked %d times, want 3", ep.Addr, seen[ep.Addr])
		}
	}
}

func TestRoundRobinBalancerEmptyEndpoints(t *testing.T) {
	b := &RoundRobinBalancer{}
	if _, err := b.Pick(nil); err == nil {
		t.Fatal("Pick on empty endpoints succeeded, want error")
	}
}

func TestWeightedRandomBalancerRespectsWeight(t *testing.T) {
	b := &WeightedRandomBalancer{}
	endpoints := []Endpoint{{Addr: "heavy", Weight: 99}, {Addr: "light", Weight: 1}}

	counts := make(map[string]int)
	for i := 0; i < 200; i++ {
		ep, err := b.Pick(endpoints)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[ep.Addr]++
	}
	if counts["heavy"] <= counts["light"] {
		t.Errorf("heavy endpoint picked %d times, light picked %d times; want heavy >> light", counts["heavy"], counts["light"])
	}
}

func TestWeightedRandomBalancerEmptyEndpoints(t *testing.T) {
	b := &WeightedRandomBalancer{}
	if _, err := b.Pick(nil); err == nil {
		t.Fatal("Pick on empty endpoints succeeded, want error")
	}
}

func TestConsistentHashBalancerStableForSameKey(t *testing.T) {
	b := NewConsistentHashBalancer()
	b.Add(Endpoint{Addr: "a"})
	b.Add(Endpoint{Addr: "b"})
	b.Add(Endpoint{Addr: "c"})

	first, err := b.PickKey("channel-7")
	if err != nil {
		t.Fatalf("PickKey failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := b.PickKey("channel-7")
		if err != nil {
			t.Fatalf("PickKey failed: %v", err)
		}
		if got.Addr != first.Addr {
			t.Fatalf("PickKey(channel-7) = %v, want stable %v", got, first)
		}
	}
}

func TestConsistentHashBalancerEmptyRing(t *testing.T) {
	b := NewConsistentHashBalancer()
	if _, err := b.PickKey("x"); err == nil {
		t.Fatal("PickKey on empty ring succeeded, want error")
	}
}
