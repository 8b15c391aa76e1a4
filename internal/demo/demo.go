// Package demo provides a minimal, in-memory collab.Document /
// collab.DocumentDirectory / collab.EngineFactory so the CLI has
// something concrete to submit work against without an office suite on
// the other end of a UNO bridge. The checker itself flags doubled spaces
// and trailing whitespace — enough to produce real RunCheck activity
// without pretending to be a linguistic engine.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
)

// Paragraph is one unit of checkable text within a Document.
type Paragraph struct {
	Text   string
	Locale collab.Locale
	Dirty  bool
}

// Document is an in-memory collab.Document: a small ordered list of
// paragraphs, each independently markable dirty (needing a follow-up
// check).
type Document struct {
	mu         sync.Mutex
	id         string
	disposed   bool
	paragraphs []Paragraph
}

// NewDocument creates a Document with the given paragraph texts, all in
// the given locale.
func NewDocument(id string, locale collab.Locale, texts ...string) *Document {
	paras := make([]Paragraph, len(texts))
	for i, t := range texts {
		paras[i] = Paragraph{Text: t, Locale: locale}
	}
	return &Document{id: id, paragraphs: paras}
}

func (d *Document) DocID() string { return d.id }

func (d *Document) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose marks the document closed. A disposed document is skipped by
// worker round-robin follow-up probing.
func (d *Document) Dispose() {
	d.mu.Lock()
	d.disposed = true
	d.mu.Unlock()
}

// Edit replaces the text of the paragraph at index and marks it dirty,
// the in-memory analogue of a keystroke arriving from the office suite.
func (d *Document) Edit(index int, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.paragraphs) {
		return
	}
	d.paragraphs[index].Text = text
	d.paragraphs[index].Dirty = true
}

func (d *Document) ParagraphLocaleAt(nStart int) collab.Locale {
	d.mu.Lock()
	defer d.mu.Unlock()
	if nStart < 0 || nStart >= len(d.paragraphs) {
		return collab.Locale{}
	}
	return d.paragraphs[nStart].Locale
}

// NextQueueEntry scans forward from nStart+1 for the next dirty
// paragraph, wrapping neither direction: like the original, a document
// only offers follow-up work for paragraphs strictly after the one just
// finished.
func (d *Document) NextQueueEntry(nStart, nCache int) (entry.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := nStart + 1; i < len(d.paragraphs); i++ {
		if d.paragraphs[i].Dirty {
			return entry.NewWork(i, i+1, nCache, 0, d.id, false), true
		}
	}
	return entry.Entry{}, false
}

// RunCheck clears the dirty bit on [nStart, nEnd) and reports any
// doubled-space or trailing-whitespace findings via the returned error's
// message — findings are not fatal, they're just surfaced as a log-worthy
// string, matching how a real grammar check reports without aborting the
// queue.
func (d *Document) RunCheck(ctx context.Context, nStart, nEnd, nCache, nCheck int, overrideRunning bool, eng collab.Engine) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var findings []string
	for i := nStart; i < nEnd && i < len(d.paragraphs); i++ {
		p := &d.paragraphs[i]
		if strings.Contains(p.Text, "  ") {
			findings = append(findings, fmt.Sprintf("paragraph %d: doubled space", i))
		}
		if strings.TrimRight(p.Text, " \t") != p.Text {
			findings = append(findings, fmt.Sprintf("paragraph %d: trailing whitespace", i))
		}
		p.Dirty = false
	}
	if len(findings) > 0 {
		return fmt.Errorf("%s", strings.Join(findings, "; "))
	}
	return nil
}

// Directory is an in-memory collab.DocumentDirectory over a fixed,
// ordered set of Documents.
type Directory struct {
	mu   sync.Mutex
	docs []*Document
}

// NewDirectory builds a Directory over docs, in the given order.
func NewDirectory(docs ...*Document) *Directory {
	return &Directory{docs: docs}
}

func (r *Directory) Documents() []collab.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]collab.Document, len(r.docs))
	for i, d := range r.docs {
		out[i] = d
	}
	return out
}

// Get returns the Document with the given id, or nil.
func (r *Directory) Get(id string) *Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.id == id {
			return d
		}
	}
	return nil
}

// engineHandle is the opaque collab.Engine EngineFactory hands back.
type engineHandle struct {
	language collab.Language
	slot     int
}

// EngineFactory is a trivial collab.EngineFactory: Initialize just wraps
// the requested language in a handle, ActivateRuleSet records the slot on
// it, Warmup is a no-op. There is no real rule engine underneath — this
// exists so the worker's language-change/reinit logic has something to
// exercise end to end.
type EngineFactory struct {
	mu        sync.Mutex
	InitCount int
}

// NewEngineFactory constructs an EngineFactory.
func NewEngineFactory() *EngineFactory { return &EngineFactory{} }

func (f *EngineFactory) Initialize(ctx context.Context, lang collab.Language, reuse bool) (collab.Engine, error) {
	f.mu.Lock()
	f.InitCount++
	f.mu.Unlock()
	return &engineHandle{language: lang}, nil
}

func (f *EngineFactory) ActivateRuleSet(index int, eng collab.Engine) error {
	h, ok := eng.(*engineHandle)
	if !ok {
		return fmt.Errorf("demo: activate rule set: not a demo engine handle")
	}
	h.slot = index
	return nil
}

func (f *EngineFactory) Warmup(ctx context.Context, eng collab.Engine, locale collab.Locale) error {
	return nil
}
