package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
	"github.com/roach88/checkqueue/internal/queue"
	"github.com/roach88/checkqueue/internal/testutil"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestSimpleDispatch(t *testing.T) {
	// S1: two documents open, submit one WORK for A, expect exactly one
	// dispatch to A with those parameters and one engine init.
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	docB := testutil.NewFakeDocument("B")
	dir := testutil.NewFakeDocumentDirectory(docA, docB)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	logger := testutil.NewFakeLogger()

	w := New(q, dir, langs, engines, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))

	waitFor(t, func() bool { return docA.CallCount() == 1 })
	assert.Equal(t, 0, docB.CallCount())
	assert.Equal(t, 1, engines.Inits())
	assert.Equal(t, 1, engines.WarmupCount, "a fresh engine must be warmed up before it is used")
	assert.Contains(t, engines.ActivateCalls, DefaultRuleCacheSlot)

	call := docA.LastCall()
	assert.Equal(t, 0, call.NStart)
	assert.Equal(t, 5, call.NEnd)
}

func TestReinitOnLanguageChangeNotOnCacheChange(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	w := New(q, dir, langs, engines, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))
	waitFor(t, func() bool { return docA.CallCount() == 1 })
	assert.Equal(t, 1, engines.Inits())
	assert.Equal(t, 1, engines.WarmupCount)

	// Same language, different cache slot: no reinit, just activation.
	q.PushBack(entry.NewWork(1, 5, 2, 0, "A", false))
	waitFor(t, func() bool { return docA.CallCount() == 2 })
	assert.Equal(t, 1, engines.Inits(), "cache-only change must not reinitialize the engine")
	assert.Equal(t, 1, engines.WarmupCount, "cache-only change must not re-warm the engine")
	assert.Contains(t, engines.ActivateCalls, 2)
}

func TestWithDefaultRuleCacheSlotOverridesActivation(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	w := New(q, dir, langs, engines, nil, WithDefaultRuleCacheSlot(7))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))
	waitFor(t, func() bool { return docA.CallCount() == 1 })
	assert.Contains(t, engines.ActivateCalls, 7)
	assert.NotContains(t, engines.ActivateCalls, DefaultRuleCacheSlot)
}

func TestUnknownLocaleDropsEntry(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry() // nothing registered
	engines := testutil.NewFakeEngineFactory()
	logger := testutil.NewFakeLogger()
	w := New(q, dir, langs, engines, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))

	waitFor(t, func() bool { return logger.ErrorCount() == 1 })
	assert.Equal(t, 0, docA.CallCount())
	assert.Equal(t, 0, engines.Inits())
}

func TestDocumentNotFoundDropsEntry(t *testing.T) {
	q := queue.New()
	dir := testutil.NewFakeDocumentDirectory() // no documents open
	langs := testutil.NewFakeLanguageRegistry()
	engines := testutil.NewFakeEngineFactory()
	logger := testutil.NewFakeLogger()
	w := New(q, dir, langs, engines, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "missing", false))

	waitFor(t, func() bool { return logger.ErrorCount() == 1 })
	assert.Equal(t, 0, engines.Inits())
}

func TestSuccessfulDispatchLogsCheckCompleted(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	logger := testutil.NewFakeLogger()
	w := New(q, dir, langs, engines, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))

	waitFor(t, func() bool { return docA.CallCount() == 1 })
	waitFor(t, func() bool {
		for _, msg := range logger.Logs {
			if msg == collab.CheckCompletedMessage {
				return true
			}
		}
		return false
	})
}

func TestStopEntryTerminatesWorker(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	w := New(q, dir, langs, engines, nil)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))
	q.PushBack(entry.MakeStop())

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not terminate on STOP")
	}
	assert.False(t, q.IsRunning())
	assert.Equal(t, 0, docA.CallCount(), "STOP was pushed after WORK so it is popped first (LIFO)")
}

func TestRoundRobinFollowUp(t *testing.T) {
	// S6: A has one entry and no further follow-ups; B has a follow-up.
	// After A completes, the worker should pull B's entry unprompted.
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	docB := testutil.NewFakeDocument("B")
	docB.FollowUps = []entry.Entry{entry.NewWork(2, 8, 0, 0, "B", false)}
	dir := testutil.NewFakeDocumentDirectory(docA, docB)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	langs.Register(docB.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	w := New(q, dir, langs, engines, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))

	waitFor(t, func() bool { return docB.CallCount() == 1 })
	call := docB.LastCall()
	assert.Equal(t, 2, call.NStart)
	assert.Equal(t, 8, call.NEnd)
	// Same language, so no second engine initialization was required.
	assert.Equal(t, 1, engines.Inits())
}

func TestNextFollowUpProbesInRoundRobinOrder(t *testing.T) {
	docA := testutil.NewFakeDocument("A")
	docB := testutil.NewFakeDocument("B")
	docC := testutil.NewFakeDocument("C")
	docC.FollowUps = []entry.Entry{entry.NewWork(0, 1, 0, 0, "C", false)}
	dir := testutil.NewFakeDocumentDirectory(docA, docB, docC)
	w := New(queue.New(), dir, nil, nil, nil)

	e, ok := w.nextFollowUp(-1, 0, "A")
	require.True(t, ok)
	assert.Equal(t, "C", e.DocID, "probing must skip A and B (no work) and land on C")
}

func TestNextFollowUpSkipsDisposed(t *testing.T) {
	docA := testutil.NewFakeDocument("A")
	docB := testutil.NewFakeDocument("B")
	docB.Disposed = true
	docB.FollowUps = []entry.Entry{entry.NewWork(0, 1, 0, 0, "B", false)}
	docC := testutil.NewFakeDocument("C")
	docC.FollowUps = []entry.Entry{entry.NewWork(0, 1, 0, 0, "C", false)}
	dir := testutil.NewFakeDocumentDirectory(docA, docB, docC)
	w := New(queue.New(), dir, nil, nil, nil)

	e, ok := w.nextFollowUp(-1, 0, "A")
	require.True(t, ok)
	assert.Equal(t, "C", e.DocID)
}

func TestWaitingWhenNoFollowUpAvailable(t *testing.T) {
	q := queue.New()
	docA := testutil.NewFakeDocument("A")
	dir := testutil.NewFakeDocumentDirectory(docA)
	w := New(q, dir, testutil.NewFakeLanguageRegistry(), testutil.NewFakeEngineFactory(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	waitFor(t, q.IsWaiting)
	assert.True(t, q.IsEmpty())
}

func TestInterruptCancelsRunningCheck(t *testing.T) {
	q := queue.New()
	started := make(chan struct{})
	docA := testutil.NewFakeDocument("A")
	docA.RunCheckFunc = func(ctx context.Context, nStart, nEnd, nCache, nCheck int, overrideRunning bool, eng collab.Engine) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	dir := testutil.NewFakeDocumentDirectory(docA)
	langs := testutil.NewFakeLanguageRegistry()
	langs.Register(docA.Locale, collab.Language{Code: "en-US"})
	engines := testutil.NewFakeEngineFactory()
	logger := testutil.NewFakeLogger()
	w := New(q, dir, langs, engines, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.PushBack(entry.NewWork(0, 5, 0, 0, "A", false))
	<-started

	q.SetInterrupt(true)

	waitFor(t, func() bool { return docA.CallCount() == 1 && logger.ErrorCount() == 1 })
}
