package repository

import (
	"context"
	"fmt"
	"sync"
)

// Handler takes part in boot and shutdown. OnStart runs inside the cluster
// lock after every repository is connected and its catalog built; OnShutdown
// runs before the pool closes.
type Handler interface {
	OnStart(ctx context.Context, m *Manager) error
	OnShutdown(ctx context.Context, m *Manager) error
}

// HandlerFuncs adapts plain functions to Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Start    func(ctx context.Context, m *Manager) error
	Shutdown func(ctx context.Context, m *Manager) error
}

// OnStart calls Start if it is set.
func (f HandlerFuncs) OnStart(ctx context.Context, m *Manager) error {
	if f.Start != nil {
		return f.Start(ctx, m)
	}
	return nil
}

// OnShutdown calls Shutdown if it is set.
func (f HandlerFuncs) OnShutdown(ctx context.Context, m *Manager) error {
	if f.Shutdown != nil {
		return f.Shutdown(ctx, m)
	}
	return nil
}

type namedHandler struct {
	name    string
	handler Handler
}

// Handlers is an ordered list of named handlers. Start order is registration
// order; shutdown runs in reverse.
type Handlers struct {
	mu   sync.RWMutex
	list []namedHandler
}

// Register appends a handler. Names are unique.
func (h *Handlers) Register(name string, handler Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, nh := range h.list {
		if nh.name == name {
			return fmt.Errorf("handler %s already registered", name)
		}
	}
	h.list = append(h.list, namedHandler{name: name, handler: handler})
	return nil
}

// Unregister removes a handler and reports whether it was present.
func (h *Handlers) Unregister(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, nh := range h.list {
		if nh.name == name {
			h.list = append(h.list[:i], h.list[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the handler names in start order.
func (h *Handlers) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, len(h.list))
	for i, nh := range h.list {
		names[i] = nh.name
	}
	return names
}

func (h *Handlers) snapshot() []namedHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]namedHandler, len(h.list))
	copy(out, h.list)
	return out
}
