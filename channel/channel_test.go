package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ttproto/ttp/packet"
)

func TestSendThenGetFIFO(t *testing.T) {
	c := New(0)
	want := []packet.Packet{packet.OfInt(1), packet.OfInt(2), packet.OfInt(3)}
	for _, p := range want {
		c.Send(p)
	}
	if n := c.OutputSize(); n != 3 {
		t.Fatalf("OutputSize() = %d, want 3", n)
	}
	for i, w := range want {
		got, ok := c.Get()
		if !ok {
			t.Fatalf("Get() #%d: ok = false", i)
		}
		if !got.Equal(w) {
			t.Errorf("Get() #%d = %v, want %v", i, got, w)
		}
	}
	if _, ok := c.Get(); ok {
		t.Errorf("Get() on empty outbound: ok = true, want false")
	}
}

func TestPutThenReceiveFIFO(t *testing.T) {
	c := New(0)
	want := []packet.Packet{packet.OfInt(1), packet.OfInt(2)}
	for _, p := range want {
		c.Put(p)
	}
	if n := c.InputSize(); n != 2 {
		t.Fatalf("InputSize() = %d, want 2", n)
	}
	for i, w := range want {
		got, ok := c.Receive()
		if !ok {
			t.Fatalf("Receive() #%d: ok = false", i)
		}
		if !got.Equal(w) {
			t.Errorf("Receive() #%d = %v, want %v", i, got, w)
		}
	}
	if _, ok := c.Receive(); ok {
		t.Errorf("Receive() on empty inbound: ok = true, want false")
	}
}

func TestPeekNonDestructive(t *testing.T) {
	c := New(0)
	c.Put(packet.OfString("a"))
	p1, ok := c.Peek()
	if !ok || !p1.Equal(packet.OfString("a")) {
		t.Fatalf("Peek() = (%v, %v)", p1, ok)
	}
	p2, ok := c.Peek()
	if !ok || !p2.Equal(packet.OfString("a")) {
		t.Fatalf("second Peek() = (%v, %v)", p2, ok)
	}
	if n := c.InputSize(); n != 1 {
		t.Errorf("InputSize() after Peek = %d, want 1", n)
	}
}

func TestAwaitOutputReturnsImmediatelyWhenEmpty(t *testing.T) {
	c := New(0)
	done := make(chan struct{})
	go func() {
		c.AwaitOutput()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("AwaitOutput blocked on an already-empty channel")
	}
}

func TestAwaitOutputWakesOnDrain(t *testing.T) {
	c := New(0)
	c.Send(packet.OfInt(1))

	done := make(chan struct{})
	go func() {
		c.AwaitOutput()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("AwaitOutput returned before the selector drained outbound")
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok := c.Get(); !ok {
		t.Fatal("Get() found nothing to drain")
	}

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("AwaitOutput did not wake after Get drained outbound")
	}
}

func TestAwaitInputWakesOnPut(t *testing.T) {
	c := New(0)
	done := make(chan packet.Packet, 1)
	go func() {
		c.AwaitInput()
		p, _ := c.Receive()
		done <- p
	}()

	select {
	case <-done:
		t.Fatal("AwaitInput returned before any packet was put")
	case <-time.After(20 * time.Millisecond):
	}

	c.Put(packet.OfString("x"))

	select {
	case got := <-done:
		if !got.Equal(packet.OfString("x")) {
			t.Errorf("received %v, want OfString(x)", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("AwaitInput did not wake after Put")
	}
}

func TestAwaitInputContextCancellation(t *testing.T) {
	c := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.AwaitInputContext(ctx)
	if err == nil {
		t.Fatal("AwaitInputContext on a never-filled channel returned nil error")
	}
}

func TestAwaitInputContextSucceedsBeforeDeadline(t *testing.T) {
	c := New(0)
	c.Put(packet.OfInt(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.AwaitInputContext(ctx); err != nil {
		t.Fatalf("AwaitInputContext = %v, want nil", err)
	}
}
