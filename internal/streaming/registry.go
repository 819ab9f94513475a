package streaming

import (
	"context"
	"sync"
)

// Registry tracks which users currently hold an active stream session. At most
// one session per user may exist; a slot is acquired on session start and must
// be released on teardown, however the session ended.
//
// The in-memory implementation is process-local: it neither survives restarts
// nor spans multiple server instances. Multi-instance deployments should use
// the redis-backed implementation or sticky routing.
type Registry interface {
	// Acquire claims the session slot for a user. Returns false when the user
	// already holds an active session.
	Acquire(ctx context.Context, userID uint) (bool, error)

	// Touch extends the claim lifetime. Called once per poll iteration so a
	// crashed process cannot block a user forever on TTL-based backends.
	Touch(ctx context.Context, userID uint) error

	// Release frees the slot unconditionally.
	Release(ctx context.Context, userID uint) error
}

// MemoryRegistry is the in-process Registry used for single-instance
// deployments and tests.
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[uint]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[uint]struct{}),
	}
}

func (r *MemoryRegistry) Acquire(_ context.Context, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[userID]; exists {
		return false, nil
	}
	r.sessions[userID] = struct{}{}
	return true, nil
}

func (r *MemoryRegistry) Touch(_ context.Context, _ uint) error {
	return nil
}

func (r *MemoryRegistry) Release(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

// Active returns the number of held session slots.
func (r *MemoryRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
