// Package queue holds the ordered buffer of pending Entries plus the
// bookkeeping the controller and worker share: identity of the
// most-recently-popped entry (for dedup and round-robin), the active
// language, and the interrupt/running/waiting lifecycle bits.
//
// All mutating and scanning operations hold a single mutex, matching
// engine.eventQueue's discipline in the teacher: the mutex is never held
// across producer I/O, the wakeup wait, or collaborator calls.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/entry"
)

// State is the queue's ordered buffer plus its bookkeeping fields. The
// zero value is not usable; construct with New.
type State struct {
	mu  sync.Mutex
	buf []entry.Entry

	// signal wakes a blocked worker. Buffered at 1 so repeated signals
	// while the worker is busy coalesce into a single wakeup, mirroring
	// eventQueue's non-blocking send.
	signal chan struct{}

	// Bookkeeping. Guarded by mu except where noted.
	lastStart       int
	lastCache       int
	lastDocID       string
	lastLanguage    collab.Language
	hasLastLanguage bool

	// activeCancel cancels the context passed to the in-flight dispatch,
	// if any. Set by the worker immediately before RunCheck and cleared
	// immediately after. Guarded by mu.
	activeCancel context.CancelFunc

	// Lifecycle bits. Atomic: read by status predicates from any
	// goroutine without taking mu.
	interrupt atomic.Bool
	running   atomic.Bool
	waiting   atomic.Bool
}

// New creates an empty queue state with lastStart initialized to -1
// (no entry has been popped yet).
func New() *State {
	return &State{
		signal:    make(chan struct{}, 1),
		lastStart: -1,
	}
}

// PushBack appends e to the buffer and signals the worker.
func (s *State) PushBack(e entry.Entry) {
	s.mu.Lock()
	s.buf = append(s.buf, e)
	s.mu.Unlock()
	s.Signal()
}

// PopBack removes and returns the most-recently-pushed entry (LIFO), the
// dispatch order §5 specifies: most-recent edit wins.
func (s *State) PopBack() (entry.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return entry.Entry{}, false
	}
	last := len(s.buf) - 1
	e := s.buf[last]
	s.buf[last] = entry.Entry{}
	s.buf = s.buf[:last]
	return e, true
}

// RemoveWhere deletes every buffered entry matching pred, preserving the
// relative order of what remains.
func (s *State) RemoveWhere(pred func(entry.Entry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.buf[:0]
	for _, e := range s.buf {
		if !pred(e) {
			kept = append(kept, e)
		}
	}
	s.buf = kept
}

// Clear discards every buffered entry.
func (s *State) Clear() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
}

// IsEmpty reports whether the buffer currently holds no entries.
func (s *State) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) == 0
}

// SnapshotIter returns a defensive copy of the buffer for scanning during
// deduplication. The caller must not assume the snapshot stays fresh.
func (s *State) SnapshotIter() []entry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entry.Entry, len(s.buf))
	copy(out, s.buf)
	return out
}

// SubmitWork atomically deduplicates and inserts a WORK entry per §4.3: if
// an equal entry is already buffered, it is replaced only when the
// newcomer's OverrideRunning is true and the existing one's is false;
// otherwise the newcomer is rejected. Returns whether e was inserted.
func (s *State) SubmitWork(e entry.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.buf {
		if existing.Equal(e) {
			if e.OverrideRunning && !existing.OverrideRunning {
				s.buf = append(s.buf[:i], s.buf[i+1:]...)
				break
			}
			return false
		}
	}
	s.buf = append(s.buf, e)
	return true
}

// RemoveFirstEqual removes the first buffered entry equal (by WORK
// identity) to target, returning whether one was found.
func (s *State) RemoveFirstEqual(target entry.Entry) (removed entry.Entry, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.buf {
		if e.Equal(target) {
			removed = e
			found = true
			s.buf = append(s.buf[:i], s.buf[i+1:]...)
			return
		}
	}
	return entry.Entry{}, false
}

// Signal wakes a blocked worker. Non-blocking: if a signal is already
// pending, this is a no-op (coalescing multiple wakeups into one, since
// the worker only cares that the buffer became non-empty, not by how
// much).
func (s *State) Signal() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Wait returns the channel the worker blocks on when idle.
func (s *State) Wait() <-chan struct{} {
	return s.signal
}

// LastIdentity returns the (nStart, nCache, docID) of the most recently
// popped entry.
func (s *State) LastIdentity() (nStart, nCache int, docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStart, s.lastCache, s.lastDocID
}

// SetLastIdentity records the identity of the entry about to be dispatched.
// Called before dispatch so a concurrent submit can suppress an exact
// re-request (§4.3).
func (s *State) SetLastIdentity(nStart, nCache int, docID string) {
	s.mu.Lock()
	s.lastStart, s.lastCache, s.lastDocID = nStart, nCache, docID
	s.mu.Unlock()
}

// SetLastStart updates only the nStart component of the last-dispatched
// identity, leaving nCache and docID untouched. Used when the worker goes
// idle: the original clears lastStart to -1 without forgetting which
// document it should resume round-robin from.
func (s *State) SetLastStart(nStart int) {
	s.mu.Lock()
	s.lastStart = nStart
	s.mu.Unlock()
}

// ClearLastDocID clears the last-dispatched document id, used by dispose
// when the in-flight entry belonged to the disposed document.
func (s *State) ClearLastDocID() {
	s.mu.Lock()
	s.lastDocID = ""
	s.mu.Unlock()
}

// LastLanguage returns the language the engine is currently configured
// for, and whether one has been set at all.
func (s *State) LastLanguage() (collab.Language, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLanguage, s.hasLastLanguage
}

// SetLastLanguage records the language the engine was just (re)configured
// for.
func (s *State) SetLastLanguage(lang collab.Language) {
	s.mu.Lock()
	s.lastLanguage, s.hasLastLanguage = lang, true
	s.mu.Unlock()
}

// DropLanguage clears the recorded language, forcing the next WORK to
// reinitialize the engine. Used by reset (§9 open question 1: reset never
// initializes the engine itself, it only makes initialization lazy again).
func (s *State) DropLanguage() {
	s.mu.Lock()
	s.hasLastLanguage = false
	s.lastLanguage = collab.Language{}
	s.mu.Unlock()
}

// SetActiveCancel records the cancel function for the context passed to
// the in-flight dispatch, or clears it when passed nil.
func (s *State) SetActiveCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.activeCancel = cancel
	s.mu.Unlock()
}

// IsRunning, IsWaiting and IsInterrupted are the public status predicates.
func (s *State) IsRunning() bool     { return s.running.Load() }
func (s *State) IsWaiting() bool     { return s.waiting.Load() }
func (s *State) IsInterrupted() bool { return s.interrupt.Load() }

// SetRunning sets the running lifecycle bit.
func (s *State) SetRunning(v bool) { s.running.Store(v) }

// SetWaiting sets the waiting lifecycle bit.
func (s *State) SetWaiting(v bool) { s.waiting.Store(v) }

// SetInterrupt sets the interrupt flag and, if a dispatch is in flight,
// cancels its context so a cooperative RunCheck observes ctx.Done()
// immediately rather than only on its next poll of the flag.
func (s *State) SetInterrupt(v bool) {
	s.interrupt.Store(v)
	if !v {
		return
	}
	s.mu.Lock()
	cancel := s.activeCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Len reports the number of buffered entries. Used for diagnostics and
// tests.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
