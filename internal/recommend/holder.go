package recommend

import (
	"errors"
	"sync/atomic"
)

// ErrNotLoaded is returned when no session has been loaded yet.
var ErrNotLoaded = errors.New("no session loaded")

// Holder publishes the current session. Readers see either the previous or the
// next fully built session, never a partial one.
type Holder struct {
	current atomic.Pointer[Session]
}

// NewHolder returns a holder initialised with s, which may be nil.
func NewHolder(s *Session) *Holder {
	h := &Holder{}
	if s != nil {
		h.current.Store(s)
	}
	return h
}

// Session returns the current session or ErrNotLoaded.
func (h *Holder) Session() (*Session, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Swap installs next and returns the previous session. The caller decides when
// the previous session is unused and can be closed.
func (h *Holder) Swap(next *Session) *Session {
	return h.current.Swap(next)
}
