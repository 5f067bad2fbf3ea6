// Package overlay is the navigation stack of the modal overlay that hosts
// source selection. The root path "/" sits at the bottom of an open stack.
package overlay

import (
	"slices"
	"sync"
)

// Root is the overlay's bottom route.
const Root = "/"

// Router manages an ordered stack of route paths. The top of the stack is
// the active view; a closed router has an empty stack.
type Router struct {
	mu    sync.Mutex
	stack []string
}

// New returns a closed router.
func New() *Router {
	return &Router{}
}

// Open shows the overlay at path, discarding any previous stack.
func (r *Router) Open(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack = []string{Root}
	if path != Root {
		r.stack = append(r.stack, path)
	}
}

// Navigate makes path active. A path already on the stack is returned to
// by dropping everything above it; a new path is pushed. Navigating a
// closed overlay does nothing.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return
	}
	if i := slices.Index(r.stack, path); i >= 0 {
		r.stack = r.stack[:i+1]
		return
	}
	r.stack = append(r.stack, path)
}

// Back pops the active view. The root is never popped.
func (r *Router) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) > 1 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// Close removes the overlay.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack = nil
}

// Current returns the active path, or "" when closed.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1]
}

// IsOpen reports whether the overlay is shown.
func (r *Router) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack) > 0
}

// Stack returns a copy of the stack, bottom first.
func (r *Router) Stack() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.stack)
}
