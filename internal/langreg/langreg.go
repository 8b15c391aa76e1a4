// Package langreg is a collab.LanguageRegistry backed by
// golang.org/x/text/language. It resolves a paragraph's collab.Locale to
// the closest language the queue actually has rules for, using BCP 47
// matching instead of an exact string lookup, so "en-GB" and "en-AU" both
// resolve to a registered "en" ruleset without a separate entry each.
package langreg

import (
	"sync"

	"golang.org/x/text/language"

	"github.com/roach88/checkqueue/internal/collab"
)

// Registry is a collab.LanguageRegistry that matches locales against a
// configured set of supported languages via golang.org/x/text/language's
// BCP 47 matcher.
type Registry struct {
	mu        sync.RWMutex
	tags      []language.Tag
	languages []collab.Language
	matcher   language.Matcher
}

// New builds a Registry supporting the given languages. Each entry's Code
// must be a valid BCP 47 tag (e.g. "en-US", "de", "pt-BR"); entries that
// fail to parse are skipped.
func New(supported ...collab.Language) *Registry {
	r := &Registry{}
	r.Reconfigure(supported...)
	return r
}

// Reconfigure replaces the set of supported languages. Existing
// resolutions made before the call keep working; every call after it
// matches against the new set.
func (r *Registry) Reconfigure(supported ...collab.Language) {
	tags := make([]language.Tag, 0, len(supported))
	langs := make([]collab.Language, 0, len(supported))
	for _, lang := range supported {
		tag, err := language.Parse(lang.Code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		langs = append(langs, lang)
	}

	r.mu.Lock()
	r.tags = tags
	r.languages = langs
	if len(tags) > 0 {
		r.matcher = language.NewMatcher(tags)
	} else {
		r.matcher = nil
	}
	r.mu.Unlock()
}

// HasLocale reports whether locale matches any supported language with
// any confidence above language.No. A locale whose language subtag is
// entirely unrecognized (confidence language.No) has no ruleset to run.
func (r *Registry) HasLocale(locale collab.Locale) bool {
	_, ok := r.resolve(locale)
	return ok
}

// LanguageFor returns the best-matching supported language for locale. If
// HasLocale would return false, the zero Language is returned.
func (r *Registry) LanguageFor(locale collab.Locale) collab.Language {
	lang, _ := r.resolve(locale)
	return lang
}

func (r *Registry) resolve(locale collab.Locale) (collab.Language, bool) {
	tag, err := language.Parse(locale.BCP47())
	if err != nil {
		return collab.Language{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.matcher == nil {
		return collab.Language{}, false
	}

	_, index, confidence := r.matcher.Match(tag)
	if confidence == language.No {
		return collab.Language{}, false
	}
	return r.languages[index], true
}
