package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/payload"
	"github.com/bft-labs/digestmail/internal/ports"
)

// Reasons reported to DigestEventEmitter.OnEventDropped.
const (
	DropReasonDisabled = "disabled"
	DropReasonShutdown = "shutdown"
)

// SchedulerConfig contains configuration for the digest scheduler.
type SchedulerConfig struct {
	// BatchTime is measured from the first event of a burst. Negative disables the scheduler.
	BatchTime time.Duration

	// BatchSizeLimit caps events per digest; <= 0 selects domain.DefaultBatchSizeLimit
	BatchSizeLimit int

	From    string
	To      []string
	Subject string

	App  domain.AppInfo
	Host domain.HostInfo
}

// DigestEventEmitter is notified about scheduler outcomes.
type DigestEventEmitter interface {
	OnEventDropped(reason string)
	OnDigestSent(events int, duration time.Duration)
	OnFlushError(err error, sent, discarded int)
}

// Scheduler buffers events and delivers them as digests once the batch
// time has elapsed after the first event of a burst.
//
// Enqueue may be called from any number of goroutines. The buffer lock is
// held only to append, swap and check the disposed flag; rendering and
// delivery run without it. Flush cycles are serialised so digests leave in
// arrival order.
type Scheduler struct {
	config   SchedulerConfig
	renderer ports.Renderer
	sender   ports.DigestSender
	errSink  ports.ErrorSink
	logger   ports.Logger
	emitter  DigestEventEmitter

	mu       sync.Mutex
	queue    []domain.Event
	timer    *time.Timer
	disposed bool

	// callbacks counts armed timers whose callback has not finished.
	callbacks sync.WaitGroup
	flushMu   sync.Mutex

	shutdownOnce sync.Once
}

// NewScheduler creates a scheduler. emitter may be nil.
func NewScheduler(
	config SchedulerConfig,
	renderer ports.Renderer,
	sender ports.DigestSender,
	errSink ports.ErrorSink,
	logger ports.Logger,
	emitter DigestEventEmitter,
) *Scheduler {
	return &Scheduler{
		config:   config,
		renderer: renderer,
		sender:   sender,
		errSink:  errSink,
		logger:   logger,
		emitter:  emitter,
	}
}

// Enqueue adds evt to the buffer. The first event into an empty buffer
// arms the batch timer; later events ride along without extending it.
// After Shutdown, or when the batch time is negative, the event is dropped.
func (s *Scheduler) Enqueue(evt domain.Event) {
	if s.config.BatchTime < 0 {
		s.dropped(DropReasonDisabled)
		return
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		s.dropped(DropReasonShutdown)
		return
	}

	s.queue = append(s.queue, evt)
	if len(s.queue) == 1 {
		s.armLocked()
	}
	s.mu.Unlock()
}

// armLocked starts the batch timer. Caller holds s.mu.
func (s *Scheduler) armLocked() {
	// A forced Flush can empty the buffer while a timer is still pending.
	if s.timer != nil && s.timer.Stop() {
		s.callbacks.Done()
	}

	s.callbacks.Add(1)
	s.timer = time.AfterFunc(s.config.BatchTime, func() {
		defer s.callbacks.Done()
		s.Flush(context.Background())
	})
}

// Pending returns the number of buffered events.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush drains the buffer and delivers it as one or more digests of at
// most BatchSizeLimit events each, in arrival order.
//
// Delivery stops at the first failing digest; the failure goes to the
// error sink and the undelivered events of this cycle are discarded.
// Flush never returns an error and never panics on delivery failure.
func (s *Scheduler) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	events := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(events) == 0 {
		return
	}

	sent := 0
	for _, batch := range domain.Chunk(events, s.config.BatchSizeLimit) {
		start := time.Now()
		if err := s.deliver(ctx, batch); err != nil {
			discarded := len(events) - sent
			s.errSink.ReportError(err, "could not send digest email")
			s.logger.Warn("digest flush abandoned",
				ports.Int("sent", sent),
				ports.Int("discarded", discarded),
			)
			if s.emitter != nil {
				s.emitter.OnFlushError(err, sent, discarded)
			}
			return
		}

		duration := time.Since(start)
		sent += batch.Size()
		s.logger.Info("sent digest",
			ports.Int("events", batch.Size()),
			ports.Duration("duration", duration),
		)
		if s.emitter != nil {
			s.emitter.OnDigestSent(batch.Size(), duration)
		}
	}
}

// deliver renders one batch and hands it to the transport.
func (s *Scheduler) deliver(ctx context.Context, batch domain.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliver digest: panic: %v", r)
		}
	}()

	subject := payload.Subject(s.config.Subject, s.config.App.Title)
	body, err := s.renderer.Render(payload.Build(batch.Events, s.config.App, s.config.Host, subject))
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, domain.Message{
		From:     s.config.From,
		To:       s.config.To,
		Subject:  subject,
		HTMLBody: body,
	})
}

// Shutdown stops accepting events, cancels the pending timer, waits for a
// running timer callback, and delivers whatever is still buffered before
// returning. Every call after the first blocks until the first completes
// and then returns without doing anything.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.disposed = true
		t := s.timer
		s.timer = nil
		s.mu.Unlock()

		if t != nil && t.Stop() {
			s.callbacks.Done()
		}
		s.callbacks.Wait()

		s.Flush(ctx)
	})
}

func (s *Scheduler) dropped(reason string) {
	if s.emitter != nil {
		s.emitter.OnEventDropped(reason)
	}
}
