package conn

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// Entry is one live connection held by the registry.
type Entry struct {
	ID        uuid.UUID
	Kind      backend.Kind
	Key       backend.Key
	Handle    Handle
	CreatedAt time.Time

	// Guarded by Registry.mu.
	lastUsed time.Time
	inUse    int
	retired  bool
}

// Info is a read-only snapshot of an entry.
type Info struct {
	Kind       backend.Kind `json:"backend"`
	Key        backend.Key  `json:"key"`
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	LastUsedAt time.Time    `json:"last_used_at"`
	InUse      int          `json:"in_use"`
}

// Registry maps (kind, key) to at most one live entry. Every method is a
// single atomic step under the registry mutex; callers never hold the lock
// across backend I/O.
//
// An entry removed while leases still pin it is retired: it leaves the map
// immediately and its handle is closed by whoever drops the last pin.
type Registry struct {
	mu      sync.Mutex
	entries map[backend.Kind]map[backend.Key]*Entry
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[backend.Kind]map[backend.Key]*Entry)}
}

// lookup pins and touches the entry for (kind, key) if there is one.
func (r *Registry) lookup(kind backend.Kind, key backend.Key, now time.Time) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[kind][key]
	if !ok {
		return nil, false
	}
	e.lastUsed = now
	e.inUse++
	return e, true
}

// pin adds a pin to e if it is still published.
func (r *Registry) pin(e *Entry, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.retired || r.entries[e.Kind][e.Key] != e {
		return false
	}
	e.lastUsed = now
	e.inUse++
	return true
}

// unpin drops a pin and reports whether the caller must now close the handle.
func (r *Registry) unpin(e *Entry, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.inUse > 0 {
		e.inUse--
	}
	if !e.retired {
		e.lastUsed = now
	}
	return e.retired && e.inUse == 0
}

// publish inserts e, replacing any previous entry for its key. The replaced
// entry is returned along with whether it can be closed right away. After
// drain, publish refuses and returns ok=false.
func (r *Registry) publish(e *Entry) (old *Entry, closeOld bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, false
	}
	byKey, exists := r.entries[e.Kind]
	if !exists {
		byKey = make(map[backend.Key]*Entry)
		r.entries[e.Kind] = byKey
	}
	old = byKey[e.Key]
	byKey[e.Key] = e
	if old != nil {
		closeOld = r.retireLocked(old)
	}
	return old, closeOld, true
}

// removed pairs a retired entry with whether it is unpinned and can be closed now.
type removed struct {
	entry     *Entry
	closeable bool
}

func (r *Registry) remove(kind backend.Kind, key backend.Key) (removed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[kind][key]
	if !ok {
		return removed{}, false
	}
	delete(r.entries[kind], key)
	return removed{entry: e, closeable: r.retireLocked(e)}, true
}

func (r *Registry) removeKind(kind backend.Kind) []removed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeKindLocked(kind)
}

func (r *Registry) removeKindLocked(kind backend.Kind) []removed {
	var out []removed
	for key, e := range r.entries[kind] {
		delete(r.entries[kind], key)
		out = append(out, removed{entry: e, closeable: r.retireLocked(e)})
	}
	return out
}

func (r *Registry) removeAll() []removed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeAllLocked()
}

func (r *Registry) removeAllLocked() []removed {
	var out []removed
	for kind := range r.entries {
		out = append(out, r.removeKindLocked(kind)...)
	}
	return out
}

// drain marks the registry closed and removes every entry.
func (r *Registry) drain() []removed {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.removeAllLocked()
}

// removeIdle removes every unpinned entry idle for longer than idle.
func (r *Registry) removeIdle(now time.Time, idle time.Duration) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Entry
	for _, byKey := range r.entries {
		for key, e := range byKey {
			if e.inUse == 0 && now.Sub(e.lastUsed) > idle {
				delete(byKey, key)
				e.retired = true
				out = append(out, e)
			}
		}
	}
	return out
}

func (r *Registry) retireLocked(e *Entry) bool {
	e.retired = true
	return e.inUse == 0
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len returns the number of published entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, byKey := range r.entries {
		n += len(byKey)
	}
	return n
}

// Snapshot lists published entries sorted by kind, then key.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	out := make([]Info, 0)
	for _, byKey := range r.entries {
		for _, e := range byKey {
			out = append(out, Info{
				Kind:       e.Kind,
				Key:        e.Key,
				ID:         e.ID.String(),
				CreatedAt:  e.CreatedAt,
				LastUsedAt: e.lastUsed,
				InUse:      e.inUse,
			})
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Key < out[j].Key
	})
	return out
}
