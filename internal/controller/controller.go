// Package controller implements the public façade over the check queue:
// submit, stop, reset, dispose, and the status predicates. It enforces the
// deduplication and interrupt semantics described in §4.3; the dedicated
// consumer loop itself lives in internal/worker.
package controller

import (
	"context"
	"time"

	"github.com/roach88/checkqueue/internal/audit"
	"github.com/roach88/checkqueue/internal/cerr"
	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
	"github.com/roach88/checkqueue/internal/queue"
	"github.com/roach88/checkqueue/internal/worker"
)

// InterruptWaitBound is the number of ticks waitForInterrupt spins for
// before giving up (§6's tunable constant: 2000 one-millisecond ticks).
const InterruptWaitBound = 2000

// InterruptWaitTick is the sleep interval between polls in waitForInterrupt.
const InterruptWaitTick = time.Millisecond

// Controller is the public façade over a single check queue. The worker is
// started at construction; Stop is the
// only termination path and is idempotent.
type Controller struct {
	q      *queue.State
	logger collab.Logger
	audit  *audit.Log

	waitBound            int
	waitTick             time.Duration
	defaultRuleCacheSlot int
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithInterruptWaitBound overrides the number of ticks waitForInterrupt
// spins for and the length of each tick (defaults: 2000 ticks of 1ms).
// Tests use it for a tighter bound; the run command forwards the
// configured values through it.
func WithInterruptWaitBound(ticks int, tick time.Duration) Option {
	return func(c *Controller) {
		c.waitBound = ticks
		c.waitTick = tick
	}
}

// WithDefaultRuleCacheSlot overrides the rule-cache slot the worker
// activates whenever it initializes a fresh engine for a language, in
// place of worker.DefaultRuleCacheSlot.
func WithDefaultRuleCacheSlot(slot int) Option {
	return func(c *Controller) {
		c.defaultRuleCacheSlot = slot
	}
}

// WithAuditLog attaches a durable audit trail. Submit, Stop, Reset, and
// Dispose record lifecycle events to it; dispatch-level events reach it
// through an audit.LoggingAdapter wrapped around the logger passed to New.
func WithAuditLog(log *audit.Log) Option {
	return func(c *Controller) {
		c.audit = log
	}
}

func (c *Controller) recordAudit(ctx context.Context, e audit.Event) {
	if c.audit == nil {
		return
	}
	_ = c.audit.Record(ctx, e)
}

// New constructs a Controller and starts its dedicated worker goroutine.
// The worker runs until ctx is cancelled or Stop is called.
func New(ctx context.Context, docs collab.DocumentDirectory, langs collab.LanguageRegistry, engines collab.EngineFactory, logger collab.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = collab.NopLogger{}
	}
	q := queue.New()
	c := &Controller{
		q:                    q,
		logger:               logger,
		waitBound:            InterruptWaitBound,
		waitTick:             InterruptWaitTick,
		defaultRuleCacheSlot: worker.DefaultRuleCacheSlot,
	}
	for _, opt := range opts {
		opt(c)
	}

	workerLogger := logger
	if c.audit != nil {
		workerLogger = audit.NewLoggingAdapter(logger, c.audit)
	}
	c.logger = workerLogger

	w := worker.New(q, docs, langs, engines, workerLogger, worker.WithDefaultRuleCacheSlot(c.defaultRuleCacheSlot))
	go w.Run(ctx)

	return c
}

// NewWorkEntry is the public factory for WORK entries referenced by §6.
func NewWorkEntry(nStart, nEnd, nCache, nCheck int, docID string, overrideRunning bool) entry.Entry {
	return entry.NewWork(nStart, nEnd, nCache, nCheck, docID, overrideRunning)
}

// Submit requests a re-check of [nStart, nEnd) in docId's rule-cache slot
// nCache. Invalid submissions are rejected silently (§3 invariant 6); an
// equal request already covered by the running item is a no-op; an equal
// request already pending is coalesced unless overrideRunning promotes it
// ahead of a non-overriding predecessor (§4.3). Submit never returns an
// error to the caller.
func (c *Controller) Submit(nStart, nEnd, nCache, nCheck int, docID string, overrideRunning bool) {
	e := entry.NewWork(nStart, nEnd, nCache, nCheck, docID, overrideRunning)
	if !e.Valid() {
		c.logger.ReportError(cerr.New(cerr.InvalidSubmission, "submit rejected: invalid entry").WithDoc(docID, nStart, nCache))
		c.recordAudit(context.Background(), audit.Event{Kind: audit.KindRejected, DocID: docID, NStart: nStart, NEnd: nEnd, NCache: nCache, NCheck: nCheck})
		return
	}

	lastStart, lastCache, lastDocID := c.q.LastIdentity()
	if !overrideRunning && e.MatchesRunning(lastStart, lastCache, lastDocID) {
		// The running item already covers this request.
		return
	}

	if !c.q.SubmitWork(e) {
		// An equal entry is already pending and the newcomer does not
		// improve on it (§4.3, and the "submit is idempotent" property).
		return
	}

	c.recordAudit(context.Background(), audit.Event{Kind: audit.KindSubmitted, DocID: docID, NStart: nStart, NEnd: nEnd, NCache: nCache, NCheck: nCheck})
	c.q.SetInterrupt(false)
	c.q.Signal()
}

// Stop tears the queue down: if the worker is running, all pending
// entries are discarded, an interrupt is raised, and a STOP sentinel is
// appended. The worker exits after consuming it, setting Running to
// false.
//
// The clear and the STOP append are deliberately two separate critical
// sections, not one atomic operation — see DESIGN.md's Open Question
// decisions on the stop/submit race. A WORK entry submitted after STOP is
// appended but before the worker pops it lands above STOP in the buffer
// and, because dispatch is LIFO, is dispatched before STOP is reached. A
// WORK entry submitted between the clear and the append lands beneath
// STOP and is dispatched only if the worker pops it before STOP arrives.
func (c *Controller) Stop() {
	if c.q.IsRunning() {
		c.q.Clear()
		c.q.SetInterrupt(true)
		c.q.PushBack(entry.MakeStop())
	}
	c.q.Signal()
	c.recordAudit(context.Background(), audit.Event{Kind: audit.KindStopped})
}

// Reset drops all pending entries and the current engine, so the next
// dispatched WORK entry triggers a fresh initialization. Per §9 open
// question 1, reset itself never touches the engine factory — it only
// makes the next initialization lazy, matching the original's behavior of
// re-initializing with a null language rather than a real one.
func (c *Controller) Reset() {
	c.q.Clear()

	lastStart, _, _ := c.q.LastIdentity()
	if !c.q.IsWaiting() && lastStart >= 0 {
		c.waitForInterrupt()
	}

	c.q.Clear()
	c.q.DropLanguage()
	c.q.Signal()
	c.recordAudit(context.Background(), audit.Event{Kind: audit.KindReset})
}

// Dispose removes every pending entry belonging to docID. If the worker is
// currently running an entry for docID, it waits (bounded) for the
// interrupt to take effect, then clears the last-dispatched document so
// round-robin follow-up does not target the disposed document again. The
// engine is left alone: dispose is a lighter-weight operation than reset.
func (c *Controller) Dispose(docID string) {
	c.q.RemoveWhere(func(e entry.Entry) bool {
		return e.Kind == entry.WORK && e.DocID == docID
	})

	lastStart, _, lastDocID := c.q.LastIdentity()
	if !c.q.IsWaiting() && lastStart >= 0 && lastDocID == docID {
		c.waitForInterrupt()
		c.q.ClearLastDocID()
	}
	c.recordAudit(context.Background(), audit.Event{Kind: audit.KindDisposed, DocID: docID})
}

// waitForInterrupt sets the interrupt flag, wakes the worker, and spins at
// waitTick intervals (1ms by default) until the worker clears the flag or the bound elapses. On
// timeout it returns regardless — the collaborator may still be running
// (§7 InterruptTimeout).
func (c *Controller) waitForInterrupt() {
	c.q.SetInterrupt(true)
	c.q.Signal()
	for i := 0; i < c.waitBound && c.q.IsInterrupted(); i++ {
		time.Sleep(c.waitTick)
	}
	if c.q.IsInterrupted() {
		c.logger.ReportError(cerr.New(cerr.InterruptTimeout, "waitForInterrupt exceeded its bound"))
	}
}

// IsRunning reports whether the worker is currently executing an entry
// (or has not yet stopped).
func (c *Controller) IsRunning() bool { return c.q.IsRunning() }

// IsWaiting reports whether the worker is blocked on its wakeup
// condition with an empty buffer and no available follow-up.
func (c *Controller) IsWaiting() bool { return c.q.IsWaiting() }

// IsInterrupted reports whether an interrupt is currently outstanding.
func (c *Controller) IsInterrupted() bool { return c.q.IsInterrupted() }

// PendingCount returns the number of buffered entries. Intended for
// diagnostics and tests.
func (c *Controller) PendingCount() int { return c.q.Len() }
