package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

type recordingApplier struct {
	mu   sync.Mutex
	seen []domain.GatewayNotification
	done chan struct{}
	want int
}

func (r *recordingApplier) Apply(_ context.Context, n domain.GatewayNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	if len(r.seen) == r.want {
		close(r.done)
	}
	if n.ResponseCode == "dup" {
		return domain.ErrPaymentFinalized
	}
	return nil
}

func TestDispatcher_PreservesPerPaymentOrder(t *testing.T) {
	applier := &recordingApplier{done: make(chan struct{}), want: 6}
	d := NewDispatcher(3, applier, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for _, code := range []string{"a", "b", "dup"} {
		d.Enqueue(ctx, domain.GatewayNotification{TxnRef: "REF-1", ResponseCode: code, Source: "return"})
		d.Enqueue(ctx, domain.GatewayNotification{TxnRef: "REF-2", ResponseCode: code, Source: "return"})
	}

	select {
	case <-applier.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notifications")
	}

	applier.mu.Lock()
	defer applier.mu.Unlock()
	order := map[string][]string{}
	for _, n := range applier.seen {
		order[n.TxnRef] = append(order[n.TxnRef], n.ResponseCode)
	}
	for ref, codes := range order {
		if len(codes) != 3 || codes[0] != "a" || codes[1] != "b" || codes[2] != "dup" {
			t.Fatalf("out of order for %s: %v", ref, codes)
		}
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingApplier{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}

	first := d.shardIndex("ABC")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("ABC"); got != first {
			t.Fatalf("shard index changed: %d != %d", got, first)
		}
	}
	if first < 0 || first >= defaultWorkers {
		t.Fatalf("shard index out of range: %d", first)
	}
}

func TestDispatcher_EnqueueDropsWhenShardFull(t *testing.T) {
	// Not started: nothing drains the single shard.
	d := NewDispatcher(1, &recordingApplier{}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < channelBuffer; i++ {
		if !d.Enqueue(ctx, domain.GatewayNotification{TxnRef: "REF-1", Source: "return"}) {
			t.Fatalf("enqueue %d rejected before the buffer filled", i)
		}
	}

	result := make(chan bool, 1)
	go func() {
		result <- d.Enqueue(ctx, domain.GatewayNotification{TxnRef: "REF-1", Source: "return"})
	}()
	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected overflow notification to be dropped")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full shard")
	}
}

func TestDispatcher_EnqueueAfterStopDrops(t *testing.T) {
	applier := &recordingApplier{done: make(chan struct{}), want: 1}
	d := NewDispatcher(1, applier, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case <-d.stopped:
		case <-deadline:
			t.Fatalf("dispatcher did not observe cancellation")
		default:
			time.Sleep(5 * time.Millisecond)
			continue
		}
		break
	}

	for i := 0; i < channelBuffer+1; i++ {
		if d.Enqueue(context.Background(), domain.GatewayNotification{TxnRef: "REF-1", Source: "return"}) {
			t.Fatalf("enqueue %d accepted after stop", i)
		}
	}
}

func TestDispatcher_EnqueueWithCancelledContext(t *testing.T) {
	d := NewDispatcher(1, &recordingApplier{}, zerolog.Nop())
	for i := 0; i < channelBuffer; i++ {
		d.Enqueue(context.Background(), domain.GatewayNotification{TxnRef: "REF-1"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if d.Enqueue(ctx, domain.GatewayNotification{TxnRef: "REF-1"}) {
		t.Fatalf("expected cancelled enqueue to be dropped")
	}
}
