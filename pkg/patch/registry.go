// Package patch owns the installation state of the resilient execution
// wrapper around a base session.
package patch

import (
	"sync"
	"time"

	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// WrapFunc decorates a session, typically query.Wrap(...).
type WrapFunc func(query.Session) query.Session

// Status describes the current installation.
type Status struct {
	Installed       bool      `json:"installed"`
	ExecutePatched  bool      `json:"executePatched"`
	CommitPatched   bool      `json:"commitPatched"`
	RollbackPatched bool      `json:"rollbackPatched"`
	InstalledAt     time.Time `json:"installedAt,omitzero"`
	Installs        int       `json:"installs"`
}

// Registry holds the installed flag together with the original and current
// sessions. Install is a compare-and-set: concurrent callers cannot both
// observe "not installed", so the base session is never wrapped twice.
type Registry struct {
	mu          sync.RWMutex
	original    query.Session
	current     query.Session
	installed   bool
	installedAt time.Time
	installs    int
}

// NewRegistry creates a registry for base. Until Install is called, Current
// returns base itself.
func NewRegistry(base query.Session) *Registry {
	return &Registry{original: base, current: base}
}

// Install wraps the original session with wrap and reports whether it did
// so. It is a no-op returning false when already installed.
func (r *Registry) Install(wrap WrapFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installLocked(wrap)
}

func (r *Registry) installLocked(wrap WrapFunc) bool {
	if r.installed {
		return false
	}
	r.current = wrap(r.original)
	r.installed = true
	r.installedAt = time.Now().UTC()
	r.installs++
	return true
}

// Reset restores the original session and clears the installed flag.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Registry) resetLocked() {
	r.current = r.original
	r.installed = false
	r.installedAt = time.Time{}
}

// Reinstall resets and installs again under one lock, so the new wrapper is
// applied to the original session rather than to the previous wrapper.
func (r *Registry) Reinstall(wrap WrapFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	r.installLocked(wrap)
}

// Installed reports whether the wrapper is installed.
func (r *Registry) Installed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.installed
}

// Current returns the session callers should execute through.
func (r *Registry) Current() query.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Original returns the unwrapped base session.
func (r *Registry) Original() query.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.original
}

// Status returns a snapshot of the installation.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patched := r.installed && r.current != r.original
	return Status{
		Installed:       r.installed,
		ExecutePatched:  patched,
		CommitPatched:   patched,
		RollbackPatched: patched,
		InstalledAt:     r.installedAt,
		Installs:        r.installs,
	}
}
