// Package collab declares the external collaborator interfaces the check
// queue core is built against: paragraph storage and change detection, the
// linguistic engine, and logging. The core never imports a concrete
// implementation of these — the demo wiring lives in internal/cli, using
// internal/demo and internal/langreg; internal/testutil supplies fakes for
// package tests.
package collab

import (
	"context"

	"github.com/roach88/checkqueue/internal/entry"
)

// Locale identifies the language/country/variant of a paragraph, mirroring
// the office suite's Locale value passed across the UNO bridge in the
// original implementation.
type Locale struct {
	Language string
	Country  string
	Variant  string
}

// BCP47 renders the locale as a best-effort BCP 47 language tag.
func (l Locale) BCP47() string {
	tag := l.Language
	if l.Country != "" {
		tag += "-" + l.Country
	}
	if l.Variant != "" {
		tag += "-" + l.Variant
	}
	return tag
}

// Language is the linguistic engine's notion of an active language. Two
// Languages are the same language iff their Code matches; this is the only
// equality the worker relies on when deciding whether to reinitialize the
// engine.
type Language struct {
	Code string
}

// Equal reports whether l and o denote the same language.
func (l Language) Equal(o Language) bool {
	return l.Code == o.Code
}

// Engine is an opaque handle to a linguistic engine instance. The core
// never inspects it; it is created, reconfigured, and used exclusively by
// the EngineFactory and Document implementations.
type Engine any

// Document is a single open document. The queue asks it for follow-up
// work, its paragraph locales, and dispatches checks to it. Implementations
// are expected to make RunCheck honor ctx cancellation on a best-effort
// basis: a check may be long-running, but must return promptly once ctx is
// done.
type Document interface {
	DocID() string
	IsDisposed() bool

	// NextQueueEntry returns a follow-up WORK entry for this document, or
	// ok=false if this document currently has nothing left to check.
	// nStart == -1 means "start scanning from the beginning."
	NextQueueEntry(nStart, nCache int) (e entry.Entry, ok bool)

	// ParagraphLocaleAt returns the locale of the paragraph at nStart.
	ParagraphLocaleAt(nStart int) Locale

	// RunCheck performs the actual check. It must honor ctx cancellation
	// on a best-effort basis; the worker cancels ctx when a stop, reset,
	// or dispose interrupts it.
	RunCheck(ctx context.Context, nStart, nEnd, nCache, nCheck int, overrideRunning bool, eng Engine) error
}

// DocumentDirectory returns the ordered set of open documents. Order
// matters: round-robin fallback probes documents by index relative to the
// currently active one.
type DocumentDirectory interface {
	Documents() []Document
}

// LanguageRegistry resolves paragraph locales to engine languages.
type LanguageRegistry interface {
	HasLocale(locale Locale) bool
	LanguageFor(locale Locale) Language
}

// EngineFactory creates and reconfigures linguistic engine instances. The
// worker owns the Engine it receives exclusively; producers never touch it.
type EngineFactory interface {
	Initialize(ctx context.Context, lang Language, reuse bool) (Engine, error)
	ActivateRuleSet(index int, eng Engine) error
	Warmup(ctx context.Context, eng Engine, locale Locale) error
}

// Logger is the logging/error-reporting collaborator. No error from the
// core ever reaches a submitter; this is the sole observability channel
// besides the status predicates.
type Logger interface {
	Log(message string, args ...any)
	ReportError(err error)
}

// CheckCompletedMessage is the Log message the worker reports after a
// check dispatch returns without error. It lives here, not in a concrete
// Logger implementation, so an audit-recording Logger (internal/audit's
// LoggingAdapter) can recognize it without the worker importing audit.
const CheckCompletedMessage = "check completed"

// NopLogger discards everything. Useful as a zero-value default.
type NopLogger struct{}

func (NopLogger) Log(string, ...any) {}
func (NopLogger) ReportError(error)  {}
