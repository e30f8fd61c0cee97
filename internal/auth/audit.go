package auth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
)

const auditWriteTimeout = 2 * time.Second

// AuditEntry is what gets persisted about one decision. It never holds the
// credential or claim values other than the principal.
type AuditEntry struct {
	PrincipalID string
	Effect      Effect
	Reason      Reason
	Resource    string
	KeyID       string
	DecidedAt   time.Time
}

type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditDispatcher hands entries to a sink on its own goroutine so that a slow
// sink never delays a decision. Entries are dropped when the buffer is full.
type AuditDispatcher struct {
	sink      AuditSink
	logger    *slog.Logger
	ch        chan AuditEntry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders every send on ch before the close of done.
	mu     sync.RWMutex
	closed bool
}

func NewAuditDispatcher(sink AuditSink, logger *slog.Logger, bufferSize int) *AuditDispatcher {
	if sink == nil {
		return nil
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &AuditDispatcher{
		sink:   sink,
		logger: logger,
		ch:     make(chan AuditEntry, bufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *AuditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.write(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *AuditDispatcher) write(entry AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := d.sink.Record(ctx, entry); err != nil {
		d.logger.ErrorContext(ctx, "recording decision failed", "effect", string(entry.Effect), "reason", string(entry.Reason), "err", err.Error())
	}
}

func (d *AuditDispatcher) Emit(entry AuditEntry) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.ch <- entry:
	default:
		d.dropped.Add(1)
	}
}

// Close drains queued entries and stops the dispatcher.
func (d *AuditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

func (d *AuditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

type auditingAuthorizer struct {
	dispatcher *AuditDispatcher
	clock      clock.Clock
	next       Authorizer
}

// NewAuditingAuthorizer records every decision made by next. Recording never
// changes the decision.
func NewAuditingAuthorizer(dispatcher *AuditDispatcher, clk clock.Clock, next Authorizer) Authorizer {
	if dispatcher == nil || next == nil {
		return next
	}
	if clk == nil {
		clk = clock.WallClock
	}

	return &auditingAuthorizer{
		dispatcher: dispatcher,
		clock:      clk,
		next:       next,
	}
}

func (a *auditingAuthorizer) Authorize(ctx context.Context, credential, resource string) (Decision, error) {
	decision, err := a.next.Authorize(ctx, credential, resource)

	entry := AuditEntry{
		PrincipalID: decision.PrincipalID,
		Effect:      decision.Effect,
		Reason:      decision.Reason,
		Resource:    resource,
		DecidedAt:   a.clock.Now(),
	}
	if token, decodeErr := DecodeToken(credential); decodeErr == nil {
		entry.KeyID = token.Header.KeyID
	}
	a.dispatcher.Emit(entry)

	return decision, err
}
