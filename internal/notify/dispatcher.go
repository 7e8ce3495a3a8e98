package notify

import (
	"context"
	"log/slog"
	"time"
)

const sendTimeout = 15 * time.Second

// Dispatcher queues emails on a buffered channel and delivers them from a
// single background worker. Enqueueing never blocks: when the queue is full
// the message is dropped and logged.
type Dispatcher struct {
	sender   Sender
	queue    chan Email
	done     chan struct{}
	onResult func(ok bool)
}

// NewDispatcher creates a dispatcher with the given queue capacity. onResult,
// when non-nil, is invoked after every delivery attempt for metrics.
func NewDispatcher(sender Sender, queueSize int, onResult func(ok bool)) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		queue:    make(chan Email, queueSize),
		done:     make(chan struct{}),
		onResult: onResult,
	}
}

// Start runs the delivery loop. It blocks until Stop is called or the
// context is cancelled, draining queued messages before returning.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case e := <-d.queue:
			d.send(e)
		case <-ctx.Done():
			d.drain()
			return
		case <-d.done:
			d.drain()
			return
		}
	}
}

// Stop signals the delivery loop to exit after draining the queue.
func (d *Dispatcher) Stop() {
	close(d.done)
}

// Enqueue adds an email to the queue without blocking. A full queue drops
// the message.
func (d *Dispatcher) Enqueue(e Email) {
	select {
	case d.queue <- e:
	default:
		slog.Warn("notification queue full, dropping email", "to", e.ToEmail, "subject", e.Subject)
		if d.onResult != nil {
			d.onResult(false)
		}
	}
}

// QueueDepth reports how many emails are waiting.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// TeamMemberAdded queues the "added to team" notification. It satisfies the
// team service's notifier dependency.
func (d *Dispatcher) TeamMemberAdded(toEmail, toName, teamName, inviterEmail string) {
	d.Enqueue(TeamAddedEmail(toEmail, toName, teamName, inviterEmail))
}

func (d *Dispatcher) send(e Email) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := d.sender.Send(ctx, e)
	if err != nil {
		slog.Error("failed to send notification email", "to", e.ToEmail, "subject", e.Subject, "error", err)
	}
	if d.onResult != nil {
		d.onResult(err == nil)
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.send(e)
		default:
			return
		}
	}
}
