// Package gen tracks request generations so that only the newest
// asynchronous request of a given kind may publish its result.
package gen

import "sync"

// Token identifies one issued request. Tokens are strictly increasing
// within a Tracker; the zero Token is never issued.
type Token uint64

// Tracker owns a single value that is replaced by the newest request's
// completion. Begin issues a new token and supersedes every earlier one;
// Resolve publishes only when its token is still current.
type Tracker[T any] struct {
	mu      sync.Mutex
	current Token
	value   T
	changed chan struct{}
	// done is closed when the current request resolves or is superseded.
	done chan struct{}
}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewTracker returns a tracker holding initial.
func NewTracker[T any](initial T) *Tracker[T] {
	return &Tracker[T]{
		value:   initial,
		changed: make(chan struct{}, 1),
	}
}

// Begin supersedes all outstanding requests, stores v as the visible
// value and returns the token of the new request.
func (t *Tracker[T]) Begin(v T) Token {
	t.mu.Lock()
	t.current++
	tok := t.current
	t.value = v
	if t.done != nil {
		close(t.done)
	}
	t.done = make(chan struct{})
	t.mu.Unlock()

	t.signal()
	return tok
}

// Resolve stores v if tok is still the newest token. It reports whether
// the value was applied.
func (t *Tracker[T]) Resolve(tok Token, v T) bool {
	t.mu.Lock()
	if tok != t.current {
		t.mu.Unlock()
		return false
	}
	t.value = v
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.mu.Unlock()

	t.signal()
	return true
}

// Done returns a channel that is closed once tok has been resolved or
// superseded. Unlike Changed it may be waited on by any number of readers.
func (t *Tracker[T]) Done(tok Token) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok != t.current || t.done == nil {
		return closed
	}
	return t.done
}

// IsCurrent reports whether tok is the newest issued token.
func (t *Tracker[T]) IsCurrent(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tok == t.current
}

// Value returns the visible value and the token it belongs to.
func (t *Tracker[T]) Value() (T, Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.current
}

// Changed returns a channel that receives after the value changes.
// Bursts of changes coalesce into one notification; readers should
// call Value after receiving.
func (t *Tracker[T]) Changed() <-chan struct{} {
	return t.changed
}

func (t *Tracker[T]) signal() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}
