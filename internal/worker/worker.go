// Package worker implements the single dedicated consumer of the check
// queue: it pops the next Entry, reconfigures the linguistic engine when
// the active language or rule-cache slot changes, dispatches the check to
// the owning document, and falls back to round-robin probing across
// documents when the current one has nothing left.
package worker

import (
	"context"
	"fmt"

	"github.com/roach88/checkqueue/internal/cerr"
	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
	"github.com/roach88/checkqueue/internal/queue"
)

// DefaultRuleCacheSlot is the rule-cache slot activated whenever the
// engine is freshly initialized for a language. The entry that triggered
// the initialization runs with this slot; an entry's own nCache is
// activated only when a later entry for the same language carries a
// different nCache than the last dispatched one.
const DefaultRuleCacheSlot = 1

// Worker is the dedicated consumer goroutine. Construct with New and run
// its loop with Run; Run returns only when a STOP entry is consumed, the
// context is cancelled, or a fatal error escapes the loop.
type Worker struct {
	q       *queue.State
	docs    collab.DocumentDirectory
	langs   collab.LanguageRegistry
	engines collab.EngineFactory
	logger  collab.Logger

	defaultRuleCacheSlot int

	engine    collab.Engine // worker-local; producers never touch this
	hasEngine bool
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithDefaultRuleCacheSlot overrides the rule-cache slot activated on a
// fresh engine initialization, in place of the package default.
func WithDefaultRuleCacheSlot(slot int) Option {
	return func(w *Worker) {
		w.defaultRuleCacheSlot = slot
	}
}

// New constructs a Worker over the given queue state and collaborators.
func New(q *queue.State, docs collab.DocumentDirectory, langs collab.LanguageRegistry, engines collab.EngineFactory, logger collab.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = collab.NopLogger{}
	}
	w := &Worker{q: q, docs: docs, langs: langs, engines: engines, logger: logger, defaultRuleCacheSlot: DefaultRuleCacheSlot}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes the worker's control loop until ctx is cancelled or a STOP
// entry is consumed. A panic escaping the loop body is treated as fatal
// (§7): it is reported and Run returns with running left false, mirroring
// the original's outermost try/catch(Throwable).
func (w *Worker) Run(ctx context.Context) {
	w.q.SetRunning(true)
	defer func() {
		if r := recover(); r != nil {
			w.logger.ReportError(cerr.Wrap(cerr.Fatal, "worker loop panicked", fmt.Errorf("%v", r)))
		}
		w.q.SetRunning(false)
	}()

	for {
		w.q.SetWaiting(false)
		w.q.SetInterrupt(false)

		if ctx.Err() != nil {
			return
		}

		if w.q.IsEmpty() {
			if follow, ok := w.tryFollowUp(); ok {
				w.q.PushBack(follow)
				continue
			}
			w.q.SetLastStart(-1)
			w.q.SetWaiting(true)
			select {
			case <-ctx.Done():
				return
			case <-w.q.Wait():
				continue
			}
		}

		e, ok := w.q.PopBack()
		if !ok {
			// Buffer emptied concurrently between the IsEmpty check and
			// the pop; loop back around.
			continue
		}

		if e.Kind == entry.STOP {
			w.logger.Log("worker stopping: STOP entry consumed")
			return
		}

		w.dispatch(ctx, e)
	}
}

// tryFollowUp asks the document directory for round-robin follow-up work
// relative to the last document worked on, per nextFollowUp (§4.4).
func (w *Worker) tryFollowUp() (entry.Entry, bool) {
	lastStart, lastCache, lastDocID := w.q.LastIdentity()
	if lastDocID == "" {
		return entry.Entry{}, false
	}
	return w.nextFollowUp(lastStart, lastCache, lastDocID)
}

// nextFollowUp probes the live, non-disposed documents in round-robin
// order: the current document first (continuing from nStart), then every
// document with a higher index, then every document with a lower index.
func (w *Worker) nextFollowUp(nStart, nCache int, docID string) (entry.Entry, bool) {
	if w.docs == nil {
		return entry.Entry{}, false
	}
	docs := w.docs.Documents()

	current := -1
	for i, d := range docs {
		if d.DocID() == docID {
			current = i
			if !d.IsDisposed() {
				if e, ok := d.NextQueueEntry(nStart, nCache); ok {
					return e, true
				}
			}
			break
		}
	}

	for i := current + 1; i < len(docs); i++ {
		if docs[i].IsDisposed() {
			continue
		}
		if e, ok := docs[i].NextQueueEntry(-1, nCache); ok {
			return e, true
		}
	}
	for i := 0; i < current && i < len(docs); i++ {
		if docs[i].IsDisposed() {
			continue
		}
		if e, ok := docs[i].NextQueueEntry(-1, nCache); ok {
			return e, true
		}
	}
	return entry.Entry{}, false
}

// dispatch resolves the entry's language, reconfigures the engine as
// needed, and runs the check. Any error from the engine or the document
// collaborator is logged and does not abort the loop (§7 CheckFailure).
func (w *Worker) dispatch(ctx context.Context, e entry.Entry) {
	doc := w.findDoc(e.DocID)
	if doc == nil {
		w.logger.ReportError(cerr.New(cerr.DocumentNotFound, "document not found").WithDoc(e.DocID, e.NStart, e.NCache))
		return
	}

	locale := doc.ParagraphLocaleAt(e.NStart)
	if w.langs == nil || !w.langs.HasLocale(locale) {
		w.logger.ReportError(cerr.New(cerr.UnknownLocale, "paragraph locale not registered").WithDoc(e.DocID, e.NStart, e.NCache))
		return
	}
	entryLanguage := w.langs.LanguageFor(locale)

	lastLang, hasLast := w.q.LastLanguage()
	_, lastCache, _ := w.q.LastIdentity()

	if !hasLast || !lastLang.Equal(entryLanguage) {
		if err := w.reinitEngine(ctx, entryLanguage, locale); err != nil {
			w.logger.ReportError(cerr.Wrap(cerr.CheckFailure, "engine initialization failed", err).WithDoc(e.DocID, e.NStart, e.NCache))
			return
		}
		w.q.SetLastLanguage(entryLanguage)
	} else if lastCache != e.NCache {
		if err := w.engines.ActivateRuleSet(e.NCache, w.engine); err != nil {
			w.logger.ReportError(cerr.Wrap(cerr.CheckFailure, "rule set activation failed", err).WithDoc(e.DocID, e.NStart, e.NCache))
			return
		}
	}

	// Recorded before dispatch so a concurrent submit can suppress an
	// identical re-request while this one is in flight (§4.3).
	w.q.SetLastIdentity(e.NStart, e.NCache, e.DocID)

	dispatchCtx, cancel := context.WithCancel(ctx)
	w.q.SetActiveCancel(cancel)
	err := doc.RunCheck(dispatchCtx, e.NStart, e.NEnd, e.NCache, e.NCheck, e.OverrideRunning, w.engine)
	w.q.SetActiveCancel(nil)
	cancel()

	if err != nil {
		w.logger.ReportError(cerr.Wrap(cerr.CheckFailure, "check failed", err).WithDoc(e.DocID, e.NStart, e.NCache))
		return
	}
	w.logger.Log(collab.CheckCompletedMessage, "doc_id", e.DocID, "n_start", e.NStart, "n_cache", e.NCache)
}

// reinitEngine re-initializes the engine for lang, warms it up against
// locale, and activates the default rule-cache slot, matching the
// original's initLangtool: initialize, then initCheck (warmup) against the
// document's locale, then activate rule-cache slot 1 by default (§4.4).
func (w *Worker) reinitEngine(ctx context.Context, lang collab.Language, locale collab.Locale) error {
	if w.engines == nil {
		return fmt.Errorf("no engine factory configured")
	}
	eng, err := w.engines.Initialize(ctx, lang, w.hasEngine)
	if err != nil {
		return err
	}
	w.engine = eng
	w.hasEngine = true

	if err := w.engines.Warmup(ctx, w.engine, locale); err != nil {
		return err
	}
	return w.engines.ActivateRuleSet(w.defaultRuleCacheSlot, w.engine)
}

func (w *Worker) findDoc(docID string) collab.Document {
	if w.docs == nil {
		return nil
	}
	for _, d := range w.docs.Documents() {
		if d.DocID() == docID {
			return d
		}
	}
	return nil
}
