package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/api/metrics"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Applier is the slice of the payment service the dispatcher drives.
type Applier interface {
	Apply(ctx context.Context, n domain.GatewayNotification) error
}

// Dispatcher routes gateway notifications to a fixed set of workers using
// consistent hashing on the transaction reference, so notifications for one
// payment are applied in arrival order.
type Dispatcher struct {
	workers []chan domain.GatewayNotification
	service Applier
	log     zerolog.Logger

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service Applier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.GatewayNotification, numWorkers),
		service: service,
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.GatewayNotification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after which Enqueue drops everything it is handed.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stopOnce.Do(func() { close(d.stopped) })
	}()
}

// Enqueue hands a notification to the worker responsible for its payment.
// It never blocks: when the shard is full, the dispatcher has stopped or ctx
// is done the notification is dropped and false is returned. The IPN still
// finalizes a dropped payment.
func (d *Dispatcher) Enqueue(ctx context.Context, n domain.GatewayNotification) bool {
	select {
	case <-d.stopped:
		d.drop(n, "stopped")
		return false
	default:
	}

	idx := d.shardIndex(n.TxnRef)
	select {
	case d.workers[idx] <- n:
		metrics.ReconcileQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	case <-ctx.Done():
		d.drop(n, "cancelled")
		return false
	default:
		d.drop(n, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(n domain.GatewayNotification, reason string) {
	metrics.ReconcileDroppedTotal.WithLabelValues(reason).Inc()
	d.log.Warn().Str("txn_ref", n.TxnRef).Str("reason", reason).Msg("reconciliation dropped")
}

// shardIndex maps a transaction reference deterministically to a worker index.
func (d *Dispatcher) shardIndex(txnRef string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(txnRef))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.GatewayNotification) {
	depth := metrics.ReconcileQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))

			start := time.Now()
			err := d.service.Apply(ctx, n)
			metrics.ReconcileDuration.Observe(time.Since(start).Seconds())

			switch {
			case err == nil:
				metrics.PaymentNotificationsTotal.WithLabelValues(n.Source, "applied").Inc()
			case errors.Is(err, domain.ErrPaymentFinalized):
				// The IPN usually wins the race; nothing left to do.
				metrics.PaymentNotificationsTotal.WithLabelValues(n.Source, "already_final").Inc()
			default:
				metrics.PaymentNotificationsTotal.WithLabelValues(n.Source, "error").Inc()
				d.log.Error().Err(err).
					Str("txn_ref", n.TxnRef).
					Int("worker_id", id).
					Msg("payment reconciliation failed")
			}
		}
	}
}
