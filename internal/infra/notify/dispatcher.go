package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
)

const (
	defaultWorkers     = 4
	defaultQueueDepth  = 256
	defaultMaxAttempts = 3
	defaultBackoff     = time.Second
)

// DispatcherConfig bounds the worker pool and its retry policy.
type DispatcherConfig struct {
	Workers     int
	QueueDepth  int
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
}

// Dispatcher delivers messages asynchronously through a bounded worker pool.
// Each delivery gets a capped number of attempts with exponential backoff;
// a delivery that exhausts its attempts is logged and dropped, never bubbled
// back to the request that enqueued it.
type Dispatcher struct {
	notifier port.Notifier
	logger   *zap.Logger
	cfg      DispatcherConfig

	jobs  chan port.Delivery
	wg    sync.WaitGroup
	once  sync.Once
	sleep func(time.Duration)
}

// NewDispatcher constructs and starts the worker pool.
func NewDispatcher(notifier port.Notifier, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		notifier: notifier,
		logger:   log,
		cfg:      cfg,
		jobs:     make(chan port.Delivery, cfg.QueueDepth),
		sleep:    time.Sleep,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	return d
}

// WithSleep replaces the backoff sleep function (primarily for testing).
func (d *Dispatcher) WithSleep(sleep func(time.Duration)) *Dispatcher {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

// Enqueue hands a delivery to the pool. Returns false when the queue is full;
// the caller treats that as a dispatch failure to log, not an error to return.
func (d *Dispatcher) Enqueue(delivery port.Delivery) bool {
	select {
	case d.jobs <- delivery:
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping delivery",
			zap.String("recipient", logger.MaskRecipient(delivery.Recipient)),
		)
		return false
	}
}

// Close stops accepting work and waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for delivery := range d.jobs {
		d.deliver(delivery)
	}
}

func (d *Dispatcher) deliver(delivery port.Delivery) {
	backoff := d.cfg.Backoff
	masked := logger.MaskRecipient(delivery.Recipient)

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		err := d.notifier.Send(ctx, delivery)
		cancel()

		if err == nil {
			if attempt > 1 {
				d.logger.Info("delivery succeeded after retry",
					zap.String("recipient", masked),
					zap.Int("attempt", attempt),
				)
			}
			return
		}

		d.logger.Warn("delivery attempt failed",
			zap.String("recipient", masked),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
			zap.Error(err),
		)

		if attempt < d.cfg.MaxAttempts {
			d.sleep(backoff)
			backoff *= 2
		}
	}

	d.logger.Error("delivery abandoned after retries",
		zap.String("recipient", masked),
		zap.Int("attempts", d.cfg.MaxAttempts),
	)
}

var _ port.Dispatcher = (*Dispatcher)(nil)
