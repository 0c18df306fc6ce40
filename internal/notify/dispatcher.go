// Package notify delivers templated emails off the request path.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"eventhub/internal/domain"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

// Options tunes the dispatcher. Zero values get defaults.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

type job struct {
	template  string
	recipient domain.Recipient
	payload   any
}

// Dispatcher implements domain.Notifier with a bounded queue and a fixed worker pool.
type Dispatcher struct {
	renderer    domain.EmailTemplateRenderer
	mailer      domain.Mailer
	logger      *slog.Logger
	workers     int
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan job
}

func NewDispatcher(renderer domain.EmailTemplateRenderer, mailer domain.Mailer, logger *slog.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		renderer:    renderer,
		mailer:      mailer,
		logger:      logger,
		workers:     opts.Workers,
		sendTimeout: opts.SendTimeout,
		queue:       make(chan job, opts.QueueSize),
	}
}

// Enqueue never blocks. It fails with ErrQueueFull when the buffer is saturated
// and ErrClosed once Run has begun shutting down.
func (d *Dispatcher) Enqueue(template string, recipient domain.Recipient, payload any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job{template: template, recipient: recipient, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done. Jobs already queued at
// that point are still delivered before Run returns. Run must be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	// Deliveries outlive ctx so the drain can finish.
	sendCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for j := range d.queue {
				d.deliver(sendCtx, j)
			}
			return nil
		})
	}

	<-ctx.Done()
	d.mu.Lock()
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	err := g.Wait()
	d.logger.Info("notification dispatcher stopped")
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	subject, html, text, err := d.renderer.Render(j.template, j.payload)
	if err != nil {
		d.logger.ErrorContext(ctx, "render notification", "template", j.template, "to", j.recipient.Email, "error", err)
		return
	}
	if err := d.mailer.Send(ctx, j.recipient.Email, subject, html, text); err != nil {
		d.logger.WarnContext(ctx, "send notification", "template", j.template, "to", j.recipient.Email, "error", err)
		return
	}
	d.logger.DebugContext(ctx, "notification sent", "template", j.template, "to", j.recipient.Email)
}
