package biz

import "sync"

// StatusObserver receives a snapshot of the vault state. The snapshot is a
// private copy owned by the observer.
type StatusObserver func(state VaultState)

type observerEntry struct {
	id  uint64
	obs StatusObserver
}

// StatusRegistry is a publish/subscribe registry of StatusObservers.
// Observers are called synchronously in registration order, each with its own
// copy of the published state.
type StatusRegistry struct {
	mu        sync.Mutex
	nextID    uint64
	observers []observerEntry
}

// NewStatusRegistry creates an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{}
}

// Register adds obs and returns a function that removes it. The returned
// function is idempotent and only ever removes obs.
func (r *StatusRegistry) Register(obs StatusObserver) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, observerEntry{id: id, obs: obs})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *StatusRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.observers {
		if e.id == id {
			// 保持注册顺序
			r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (r *StatusRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// Publish delivers state to every observer registered at the time of the call.
// Observers may unregister from inside their callback.
func (r *StatusRegistry) Publish(state VaultState) {
	r.mu.Lock()
	targets := make([]observerEntry, len(r.observers))
	copy(targets, r.observers)
	r.mu.Unlock()

	for _, e := range targets {
		e.obs(state.Clone())
	}
}
