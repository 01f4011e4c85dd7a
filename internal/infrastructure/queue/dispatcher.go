package queue

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
	"github.com/coachline/coaching-core/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Publisher is the broker side of the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Deduper guards against publishing the same notification twice.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Dispatcher delivers lifecycle notifications on a fixed set of workers, sharded by
// subject id so notifications about one person keep their order. Notify never
// blocks: when a worker's buffer is full the notification is dropped and counted.
type Dispatcher struct {
	workers   []chan domain.Notification
	publisher Publisher
	dedup     Deduper
	topic     string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. dedup may be nil.
func NewDispatcher(numWorkers int, publisher Publisher, dedup Deduper, topic string, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.Notification, numWorkers),
		publisher: publisher,
		dedup:     dedup,
		topic:     topic,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their buffer and stop when
// ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify hands n to the worker responsible for its subject.
func (d *Dispatcher) Notify(_ context.Context, n domain.Notification) {
	idx := d.shardIndex(n.SubjectID)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Warn().
			Str("kind", string(n.Kind)).
			Str("subject_id", n.SubjectID).
			Int("worker_id", idx).
			Msg("notification queue full, dropping")
	}
}

// shardIndex maps a subject id deterministically to a worker index.
func (d *Dispatcher) shardIndex(subjectID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case n := <-ch:
					d.deliver(context.WithoutCancel(ctx), id, n)
				default:
					metrics.NotificationQueueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		case n := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, n domain.Notification) {
	kind := string(n.Kind)
	key := n.DedupKey()

	if d.dedup != nil {
		claimed, err := d.dedup.Claim(ctx, key)
		if err != nil {
			// Fall through and publish without dedup.
			d.log.Warn().Err(err).Str("key", key).Msg("dedup unavailable")
		} else if !claimed {
			metrics.NotificationsTotal.WithLabelValues(kind, "duplicate").Inc()
			d.log.Debug().Str("key", key).Msg("duplicate notification skipped")
			return
		}
	}

	payload, err := json.Marshal(n)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		d.log.Error().Err(err).Str("id", n.ID).Msg("encode notification")
		return
	}

	attrs := map[string]string{"kind": kind, "subject_id": n.SubjectID}
	msgID, err := d.publisher.Publish(ctx, d.topic, payload, attrs)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		d.log.Error().Err(err).
			Str("kind", kind).
			Str("subject_id", n.SubjectID).
			Int("worker_id", workerID).
			Msg("notification publish failed")
		if d.dedup != nil {
			if rerr := d.dedup.Release(ctx, key); rerr != nil {
				d.log.Warn().Err(rerr).Str("key", key).Msg("dedup release failed")
			}
		}
		return
	}

	metrics.NotificationsTotal.WithLabelValues(kind, "published").Inc()
	d.log.Debug().Str("kind", kind).Str("message_id", msgID).Msg("notification published")
}
