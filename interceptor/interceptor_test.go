package interceptor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ttproto/ttp/packet"
)

func echoHandler(ctx context.Context, req packet.Packet) (packet.Packet, error) {
	return req, nil
}

func TestChainOrdersOuterToInner(t *testing.T) {
	var order []string
	mark := func(name string) Interceptor {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
				order = append(order, "before:"+name)
				reply, err := next(ctx, req)
				order = append(order, "after:"+name)
				return reply, err
			}
		}
	}

	chain := Chain(mark("A"), mark("B"))
	handler := chain(echoHandler)

	if _, err := handler(context.Background(), packet.OfInt(1)); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	want := []string{"before:A", "before:B", "after:B", "after:A"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestLoggingPassesThroughResult(t *testing.T) {
	handler := Logging()(echoHandler)
	reply, err := handler(context.Background(), packet.OfString("x"))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !reply.Equal(packet.OfString("x")) {
		t.Errorf("reply = %v, want OfString(x)", reply)
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	handler := RateLimit(1, 1)(echoHandler)

	if _, err := handler(context.Background(), packet.OfInt(1)); err != nil {
		t.Fatalf("first call within burst failed: %v", err)
	}
	if _, err := handler(context.Background(), packet.OfInt(2)); err == nil {
		t.Fatal("second call beyond burst succeeded, want rate limit error")
	}
}

func TestTimeoutReturnsErrorWhenHandlerHangs(t *testing.T) {
	slow := func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
		select {
		case <-time.After(time.Second):
			return req, nil
		case <-ctx.Done():
			return packet.Packet{}, ctx.Err()
		}
	}
	handler := Timeout(10 * time.Millisecond)(slow)

	_, err := handler(context.Background(), packet.OfInt(1))
	if err == nil {
		t.Fatal("Timeout over a hanging handler returned nil error")
	}
}

func TestTimeoutPassesThroughFastHandler(t *testing.T) {
	handler := Timeout(time.Second)(echoHandler)
	reply, err := handler(context.Background(), packet.OfInt(9))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !reply.Equal(packet.OfInt(9)) {
		t.Errorf("reply = %v, want OfInt(9)", reply)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	flaky := func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
		attempts++
		if attempts < 3 {
			return packet.Packet{}, fmt.Errorf("transient failure")
		}
		return req, nil
	}

	handler := Retry(5, time.Millisecond)(flaky)
	reply, err := handler(context.Background(), packet.OfInt(4))
	if err != nil {
		t.Fatalf("handler failed after retries: %v", err)
	}
	if !reply.Equal(packet.OfInt(4)) {
		t.Errorf("reply = %v, want OfInt(4)", reply)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	alwaysFails := func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
		attempts++
		return packet.Packet{}, fmt.Errorf("permanent failure")
	}

	handler := Retry(2, time.Millisecond)(alwaysFails)
	_, err := handler(context.Background(), packet.OfInt(1))
	if err == nil {
		t.Fatal("Retry over an always-failing handler returned nil error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
}
