// Package abort tracks one live cancellation token per operation key.
// Acquiring a key that is already held cancels the previous holder first,
// which is the single mechanism by which a new operation for a target
// supersedes an older one.
package abort

import (
	"context"
	"strings"
	"sync"
)

// Operation is a registered cancellation token. The context it carries is
// derived from the caller's context and is cancelled when the operation is
// superseded, released, or swept by a prefix cancel.
type Operation struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc
}

func (o *Operation) Key() string { return o.key }

// Context reports the operation-scoped context. Orchestration code checks
// it after every suspension point and skips store writes once it errs.
func (o *Operation) Context() context.Context { return o.ctx }

type Registry struct {
	mu  sync.Mutex
	ops map[string]*Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Acquire registers a fresh token under key, cancelling and discarding any
// existing one. Cancellation only signals; an in-flight call keeps running
// until it observes its context.
func (r *Registry) Acquire(ctx context.Context, key string) *Operation {
	if ctx == nil {
		ctx = context.Background()
	}
	opCtx, cancel := context.WithCancel(ctx)
	op := &Operation{key: key, ctx: opCtx, cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.ops[key]; ok {
		prev.cancel()
	}
	r.ops[key] = op
	r.mu.Unlock()

	return op
}

// Release cancels op and removes its entry, but only if op is still the
// registered holder. A superseded operation releasing in its defer must not
// evict the successor that replaced it.
func (r *Registry) Release(op *Operation) {
	if op == nil {
		return
	}
	op.cancel()

	r.mu.Lock()
	if cur, ok := r.ops[op.key]; ok && cur == op {
		delete(r.ops, op.key)
	}
	r.mu.Unlock()
}

// Active reports whether an entry exists for key.
func (r *Registry) Active(key string) bool {
	r.mu.Lock()
	_, ok := r.ops[key]
	r.mu.Unlock()
	return ok
}

// Cancel cancels and removes the exact key, reporting whether it was live.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	op, ok := r.ops[key]
	if ok {
		op.cancel()
		delete(r.ops, key)
	}
	r.mu.Unlock()
	return ok
}

// CancelPrefix cancels and removes every entry equal to prefix or extending
// it at a "-" segment boundary, returning the number of cancelled entries.
// "team-1-2" sweeps "team-1-2" and "team-1-2-match-5" but not "team-1-23".
func (r *Registry) CancelPrefix(prefix string) int {
	bounded := prefix + "-"

	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := 0
	for key, op := range r.ops {
		if key != prefix && !strings.HasPrefix(key, bounded) {
			continue
		}
		op.cancel()
		delete(r.ops, key)
		cancelled++
	}
	return cancelled
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}
