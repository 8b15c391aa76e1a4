package testutil

import (
	"context"
	"sync"

	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
)

// FakeDocument is an in-memory collab.Document for tests.
//
// FollowUps is consumed front-to-back by NextQueueEntry, one entry per
// call, regardless of the (nStart, nCache) arguments — real documents
// would use those to resume scanning; fakes just hand back a canned
// sequence so tests can assert dispatch order.
type FakeDocument struct {
	mu sync.Mutex

	ID        string
	Disposed  bool
	Locale    collab.Locale
	FollowUps []entry.Entry

	RunCheckFunc func(ctx context.Context, nStart, nEnd, nCache, nCheck int, overrideRunning bool, eng collab.Engine) error

	Calls []RunCheckCall
}

// RunCheckCall records one invocation of RunCheck for assertions.
type RunCheckCall struct {
	NStart, NEnd, NCache, NCheck int
	OverrideRunning              bool
	Engine                       collab.Engine
}

func NewFakeDocument(id string) *FakeDocument {
	return &FakeDocument{ID: id, Locale: collab.Locale{Language: "en", Country: "US"}}
}

func (d *FakeDocument) DocID() string       { return d.ID }
func (d *FakeDocument) IsDisposed() bool    { return d.Disposed }
func (d *FakeDocument) ParagraphLocaleAt(int) collab.Locale { return d.Locale }

func (d *FakeDocument) NextQueueEntry(nStart, nCache int) (entry.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.FollowUps) == 0 {
		return entry.Entry{}, false
	}
	e := d.FollowUps[0]
	d.FollowUps = d.FollowUps[1:]
	return e, true
}

func (d *FakeDocument) RunCheck(ctx context.Context, nStart, nEnd, nCache, nCheck int, overrideRunning bool, eng collab.Engine) error {
	d.mu.Lock()
	d.Calls = append(d.Calls, RunCheckCall{nStart, nEnd, nCache, nCheck, overrideRunning, eng})
	fn := d.RunCheckFunc
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, nStart, nEnd, nCache, nCheck, overrideRunning, eng)
	}
	return nil
}

// CallCount returns how many times RunCheck has been called, safe for
// concurrent use.
func (d *FakeDocument) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}

// LastCall returns the most recent RunCheck call, or the zero value if
// none has happened yet.
func (d *FakeDocument) LastCall() RunCheckCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Calls) == 0 {
		return RunCheckCall{}
	}
	return d.Calls[len(d.Calls)-1]
}

// FakeDocumentDirectory is an ordered, mutable collab.DocumentDirectory.
type FakeDocumentDirectory struct {
	mu   sync.Mutex
	docs []*FakeDocument
}

func NewFakeDocumentDirectory(docs ...*FakeDocument) *FakeDocumentDirectory {
	return &FakeDocumentDirectory{docs: docs}
}

func (r *FakeDocumentDirectory) Documents() []collab.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]collab.Document, len(r.docs))
	for i, d := range r.docs {
		out[i] = d
	}
	return out
}

// Add appends a document to the directory.
func (r *FakeDocumentDirectory) Add(d *FakeDocument) {
	r.mu.Lock()
	r.docs = append(r.docs, d)
	r.mu.Unlock()
}

// FakeLanguageRegistry maps locales to languages by BCP-47 tag.
type FakeLanguageRegistry struct {
	mu    sync.Mutex
	known map[string]collab.Language
}

func NewFakeLanguageRegistry() *FakeLanguageRegistry {
	return &FakeLanguageRegistry{known: make(map[string]collab.Language)}
}

// Register makes locale resolve to lang.
func (r *FakeLanguageRegistry) Register(locale collab.Locale, lang collab.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[locale.BCP47()] = lang
}

func (r *FakeLanguageRegistry) HasLocale(locale collab.Locale) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.known[locale.BCP47()]
	return ok
}

func (r *FakeLanguageRegistry) LanguageFor(locale collab.Locale) collab.Language {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.known[locale.BCP47()]
}

// FakeEngineFactory records initialization/activation calls and hands back
// a distinct fake engine handle on every Initialize call.
type FakeEngineFactory struct {
	mu             sync.Mutex
	InitCount      int
	ActivateCalls  []int
	WarmupCount    int
	InitErr        error
	ActivateErr    error
}

func NewFakeEngineFactory() *FakeEngineFactory {
	return &FakeEngineFactory{}
}

type fakeEngineHandle struct{ n int }

func (f *FakeEngineFactory) Initialize(ctx context.Context, lang collab.Language, reuse bool) (collab.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return nil, f.InitErr
	}
	f.InitCount++
	return &fakeEngineHandle{n: f.InitCount}, nil
}

func (f *FakeEngineFactory) ActivateRuleSet(index int, eng collab.Engine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ActivateCalls = append(f.ActivateCalls, index)
	return f.ActivateErr
}

func (f *FakeEngineFactory) Warmup(ctx context.Context, eng collab.Engine, locale collab.Locale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WarmupCount++
	return nil
}

func (f *FakeEngineFactory) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.InitCount
}

// FakeLogger records log and error calls for assertions.
type FakeLogger struct {
	mu       sync.Mutex
	Logs     []string
	Errors   []error
}

func NewFakeLogger() *FakeLogger { return &FakeLogger{} }

func (l *FakeLogger) Log(message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logs = append(l.Logs, message)
}

func (l *FakeLogger) ReportError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, err)
}

func (l *FakeLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Errors)
}
