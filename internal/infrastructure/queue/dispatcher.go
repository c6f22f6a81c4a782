package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 10 * time.Second
)

// Dispatcher delivers emails on a fixed set of background workers. Each
// message is attempted once: failures are logged, counted and reported, and
// never retried.
type Dispatcher struct {
	queue    chan ports.EmailMessage
	sender   ports.MailSender
	reporter ports.ErrorReporter
	workers  int
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers workers reading a buffer
// of size buffer. Non-positive values fall back to the defaults.
func NewDispatcher(numWorkers, buffer int, sender ports.MailSender, reporter ports.ErrorReporter, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = channelBuffer
	}
	return &Dispatcher{
		queue:    make(chan ports.EmailMessage, buffer),
		sender:   sender,
		reporter: reporter,
		workers:  numWorkers,
		log:      log,
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch enqueues msg without blocking. When the buffer is full the
// message is dropped.
func (d *Dispatcher) Dispatch(msg ports.EmailMessage) {
	select {
	case d.queue <- msg:
		metrics.EmailQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.EmailsDispatchedTotal.WithLabelValues(msg.Template, "dropped").Inc()
		d.log.Error().
			Str("template", msg.Template).
			Msg("email queue full, message dropped")
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			metrics.EmailQueueDepth.Set(float64(len(d.queue)))
			d.deliver(ctx, id, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg ports.EmailMessage) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Send(sendCtx, msg)
	metrics.EmailDeliveryDuration.WithLabelValues(msg.Template).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EmailsDispatchedTotal.WithLabelValues(msg.Template, "failed").Inc()
		if d.reporter != nil {
			d.reporter.CaptureException(err)
		}
		d.log.Error().Err(err).
			Str("template", msg.Template).
			Int("worker_id", id).
			Msg("email delivery failed")
		return
	}

	metrics.EmailsDispatchedTotal.WithLabelValues(msg.Template, "sent").Inc()
	d.log.Debug().Str("template", msg.Template).Msg("email sent")
}
