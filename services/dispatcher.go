package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Notifier is the outbound chat gateway.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Notice is one message for one chat.
type Notice struct {
	ChatID int64
	Text   string
}

const defaultFanOut = 8

// Dispatcher hands notices to the Notifier after the triggering operation has
// committed. Failures are logged and dropped.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	fanOut   int

	wg sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: notifier, logger: logger, timeout: timeout, fanOut: defaultFanOut}
}

// Send delivers in the background and returns immediately.
func (d *Dispatcher) Send(notices ...Notice) {
	if len(notices) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Deliver(context.Background(), notices)
	}()
}

// Deliver sends every notice with bounded parallelism and returns how many
// the gateway accepted.
func (d *Dispatcher) Deliver(ctx context.Context, notices []Notice) int {
	var delivered atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.fanOut)
	for _, n := range notices {
		n := n
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			if err := d.notifier.Notify(callCtx, n.ChatID, n.Text); err != nil {
				d.logger.WarnContext(ctx, "Notification failed", slog.Int64("chat_id", n.ChatID), slog.Any("error", err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}

// Wait blocks until every background send has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
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

// LivePublisher pushes tournament events to connected viewers.
type LivePublisher interface {
	Publish(tournamentID int, event string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(int, string, interface{}) {}

func orNoop(p LivePublisher) LivePublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
