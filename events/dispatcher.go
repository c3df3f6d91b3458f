package events

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/domain"
)

const (
	workersPerCPU   = 4
	minWorkers      = 4
	maxWorkers      = 64
	bufferPerWorker = 64
)

// Config tunes a Dispatcher. Zero values select defaults.
type Config struct {
	Workers        int
	Buffer         int
	PublishTimeout time.Duration
	HandoffTimeout time.Duration
}

// Dispatcher publishes task events from a fixed set of worker goroutines.
// When the buffer stays full for longer than the handoff timeout the event is
// published inline on the caller's goroutine.
type Dispatcher struct {
	pub            Publisher
	log            *log.Logger
	jobs           chan domain.TaskEvent
	wg             sync.WaitGroup
	publishTimeout time.Duration
	handoffTimeout time.Duration
	closeOnce      sync.Once
}

// NewDispatcher starts the workers. Close must be called to drain them.
func NewDispatcher(pub Publisher, cfg Config, logger *log.Logger) *Dispatcher {
	if pub == nil {
		panic("events.NewDispatcher: publisher is nil")
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	workers, buffer := computeWorkerDefaults(cfg.Workers, cfg.Buffer, runtime.NumCPU())
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 30 * time.Second
	}
	if cfg.HandoffTimeout < 0 {
		cfg.HandoffTimeout = 0
	}
	d := &Dispatcher{
		pub:            pub,
		log:            logger,
		jobs:           make(chan domain.TaskEvent, buffer),
		publishTimeout: cfg.PublishTimeout,
		handoffTimeout: cfg.HandoffTimeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("event dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", workers, buffer, cfg.PublishTimeout, cfg.HandoffTimeout)
	return d
}

func computeWorkerDefaults(workers, buffer, cpu int) (int, int) {
	if workers <= 0 {
		if cpu < 1 {
			cpu = 1
		}
		workers = cpu * workersPerCPU
		if workers < minWorkers {
			workers = minWorkers
		}
		if workers > maxWorkers {
			workers = maxWorkers
		}
	}
	if buffer <= 0 {
		buffer = workers * bufferPerWorker
	}
	return workers, buffer
}

// Notify hands ev to a worker. It never blocks longer than the handoff
// timeout plus, when the buffer is saturated, one inline publish.
func (d *Dispatcher) Notify(ctx context.Context, ev domain.TaskEvent) {
	ok, closed := d.tryHandoff(ev)
	if ok {
		return
	}
	if closed {
		d.log.WithField("type", ev.Type).Warn("event dispatcher closed; publishing inline")
	} else {
		d.log.WithField("type", ev.Type).Warn("event buffer saturated; publishing inline")
	}
	d.publish(context.WithoutCancel(ctx), ev, -1)
}

// Close stops accepting events and waits until the buffered ones are
// published or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.jobs) })
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		d.publish(context.Background(), ev, id)
	}
}

func (d *Dispatcher) publish(parent context.Context, ev domain.TaskEvent, worker int) {
	ctx, cancel := context.WithTimeout(parent, d.publishTimeout)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		d.log.WithFields(log.Fields{
			"type":   ev.Type,
			"task":   ev.TaskID,
			"worker": worker,
		}).Errorf("event publish failed, err: %v", err)
	}
}

func (d *Dispatcher) tryHandoff(ev domain.TaskEvent) (ok bool, closed bool) {
	if ok, closed = trySendNonBlocking(d.jobs, ev); ok || closed {
		return ok, closed
	}

	if d.handoffTimeout <= 0 {
		return false, false
	}

	timer := time.NewTimer(d.handoffTimeout)
	defer timer.Stop()

	return sendWithTimer(d.jobs, ev, timer.C)
}

// A send on a closed channel panics; both helpers report that as closed.
func trySendNonBlocking[T any](ch chan T, v T) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- v:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer[T any](ch chan T, v T, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- v:
		return true, false
	case <-timer:
		return false, false
	}
}
