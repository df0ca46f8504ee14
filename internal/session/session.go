// Package session owns the credential token for the current process.
//
// Exactly one session is active at a time. Other components read the token
// when issuing a remote call; they never mutate it. The epoch counter lets a
// caller detect that a logout happened between issuing a request and its
// response arriving, so late responses can be discarded instead of mutating
// state that belongs to a dead session.
package session

import "sync"

// Holder is the single session slot. The zero value is an unauthenticated
// holder ready for use.
type Holder struct {
	mu    sync.Mutex
	token string
	epoch uint64
}

// SetToken installs a token obtained from a successful login. Callers must
// not install a token before the authentication endpoint has confirmed it.
func (h *Holder) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.epoch++
}

// Clear drops the token unconditionally (logout, or a remote call reporting
// the token invalid). Bumping the epoch invalidates every in-flight request
// snapshot taken before this point.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
	h.epoch++
}

// Token returns the current token, and whether one is held.
func (h *Holder) Token() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token, h.token != ""
}

// Authenticated reports whether a token is held.
func (h *Holder) Authenticated() bool {
	_, ok := h.Token()
	return ok
}

// Snapshot captures the token together with the epoch it belongs to. Capture
// at request-issue time; check StillCurrent before applying the response.
func (h *Holder) Snapshot() (token string, epoch uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token, h.epoch
}

// StillCurrent reports whether no login/logout happened since the snapshot
// with the given epoch was taken.
func (h *Holder) StillCurrent(epoch uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.epoch == epoch
}
