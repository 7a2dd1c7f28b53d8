package result

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/sdk/metrics"
)

// DefaultCapacity is the number of errors a Stack retains.
const DefaultCapacity = 100

// Subscriber observes errors before they are recorded. Returning true vetoes
// recording; the status returned by Push is unaffected.
type Subscriber func(*Error) bool

type subscription struct {
	id int
	fn Subscriber
}

// Stack is a bounded, newest-first history of errors. When full, the oldest
// entry is evicted before the newest is inserted.
type Stack struct {
	mu       sync.Mutex
	entries  []*Error
	capacity int
	log      *zerolog.Logger

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

// NewStack returns an empty history holding up to capacity errors.
// A capacity of zero or less selects DefaultCapacity.
func NewStack(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity}
}

// SetLogger makes the stack log recorded errors through l instead of the
// shared logger.
func (s *Stack) SetLogger(l zerolog.Logger) {
	s.mu.Lock()
	s.log = &l
	s.mu.Unlock()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Stack) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Push notifies subscribers and records e unless one of them vetoes it.
// It returns the status of e, or StatusUnknownError for a nil error.
func (s *Stack) Push(e *Error) Status {
	if e == nil {
		return StatusUnknownError
	}
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	vetoed := false
	for _, sub := range subs {
		if sub.fn(e) {
			vetoed = true
		}
	}
	if vetoed {
		return e.Status
	}

	s.mu.Lock()
	if len(s.entries) >= s.capacity {
		s.entries = s.entries[:s.capacity-1]
	}
	s.entries = append(s.entries, nil)
	copy(s.entries[1:], s.entries)
	s.entries[0] = e
	log := logx.Log
	if s.log != nil {
		log = *s.log
	}
	s.mu.Unlock()

	ev := log.Warn().
		Str("component", e.Component).
		Int("code", e.Status.Code()).
		Str("status", e.Status.Name())
	if e.AuxMessage != "" {
		ev = ev.Str("aux", e.AuxMessage)
	}
	if e.Cause != nil {
		ev = ev.Err(e.Cause)
	}
	ev.Msg(e.Status.Message())
	metrics.RecordError(e.Status.Name())
	return e.Status
}

// Record pushes a new error for status raised by component.
func (s *Stack) Record(component string, status Status, aux string) Status {
	return s.Push(NewError(component, status, aux))
}

// RecordErr pushes a new error for status caused by err.
func (s *Stack) RecordErr(component string, status Status, err error) Status {
	return s.Push(Wrap(component, status, err))
}

// Pop removes and returns the newest error, or nil when empty.
func (s *Stack) Pop() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	return e
}

// PopAll removes and returns every error, newest first. It returns nil when
// the history is empty.
func (s *Stack) PopAll() []*Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	out := s.entries
	s.entries = nil
	return out
}

// Entries returns a copy of the history, newest first.
func (s *Stack) Entries() []*Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Error, len(s.entries))
	copy(out, s.entries)
	return out
}

// Peek returns the newest error without removing it.
func (s *Stack) Peek() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[0]
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) HasErrors() bool { return s.Len() > 0 }

func (s *Stack) Capacity() int { return s.capacity }

// Fail records e in s and returns a result carrying v with the recorded
// status.
func Fail[T any](s *Stack, e *Error, v T) Result[T] {
	return Result[T]{Status: s.Push(e), Value: v}
}
