// Package conn owns the connection lifecycle: one registry of live handles,
// a manager that reuses or opens them and a sweeper that evicts idle ones.
package conn

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
)

// DefaultConnectTimeout bounds a single open+ping.
const DefaultConnectTimeout = 10 * time.Second

// Handle is a ready backend connection.
type Handle interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Opener establishes a handle for cfg. It must return only a handle the
// backend has confirmed to be ready, and must not leak one on error.
type Opener interface {
	Open(ctx context.Context, cfg backend.Config) (Handle, error)
}

// Close reasons recorded in metrics and logs.
const (
	reasonReleased = "released"
	reasonEvicted  = "evicted"
	reasonReplaced = "replaced"
	reasonShutdown = "shutdown"
)

// Options configures a Manager.
type Options struct {
	Openers        map[backend.Kind]Opener
	KeyPolicy      backend.KeyPolicy
	ConnectTimeout time.Duration
	Logger         *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager hands out leases on registry entries, opening a connection only
// when none is published for the resolved key.
type Manager struct {
	reg            *Registry
	openers        map[backend.Kind]Opener
	policy         backend.KeyPolicy
	connectTimeout time.Duration
	log            *slog.Logger
	now            func() time.Time
	flights        singleflight.Group
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		reg:            NewRegistry(),
		openers:        opts.Openers,
		policy:         opts.KeyPolicy,
		connectTimeout: opts.ConnectTimeout,
		log:            opts.Logger,
		now:            opts.Now,
	}
	if m.connectTimeout <= 0 {
		m.connectTimeout = DefaultConnectTimeout
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.log = m.log.With("component", "conn_manager")
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Registry exposes the manager's registry for inspection.
func (m *Manager) Registry() *Registry { return m.reg }

// Key resolves the identity cfg maps to under the manager's key policy.
func (m *Manager) Key(cfg backend.Config) backend.Key {
	return backend.ResolveKey(cfg, m.policy)
}

// Lease pins an entry until Release is called. A pinned entry is never evicted.
type Lease struct {
	m     *Manager
	entry *Entry
	once  sync.Once
}

func (l *Lease) Handle() Handle { return l.entry.Handle }

func (l *Lease) Kind() backend.Kind { return l.entry.Kind }

func (l *Lease) Key() backend.Key { return l.entry.Key }

func (l *Lease) ID() uuid.UUID { return l.entry.ID }

// Release unpins the entry and refreshes its last-used time. Calling it more
// than once is harmless.
func (l *Lease) Release() {
	l.once.Do(func() {
		if l.m.reg.unpin(l.entry, l.m.now()) {
			// Removed while we held it: we were the last user.
			l.m.closeEntry(context.Background(), l.entry, reasonReleased)
		}
	})
}

// Acquire returns a lease on the connection for cfg, opening one if needed.
//
// With forceNew a fresh connection is always opened and replaces any
// published one; the replaced handle is closed once nobody holds it.
func (m *Manager) Acquire(ctx context.Context, cfg backend.Config, forceNew bool) (*Lease, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Invalid(cfg.Kind, err.Error())
	}
	if m.reg.isClosed() {
		return nil, errors.Connection(cfg.Kind, "connection manager is closed", nil)
	}
	key := m.Key(cfg)

	if !forceNew {
		if e, ok := m.reg.lookup(cfg.Kind, key, m.now()); ok {
			observe.ConnectionsReused.WithLabelValues(string(cfg.Kind)).Inc()
			m.log.Debug("reusing connection", "backend", cfg.Kind, "key", key, "id", e.ID)
			return &Lease{m: m, entry: e}, nil
		}
	}

	flightKey := string(cfg.Kind) + "\x00" + string(key)
	if forceNew {
		flightKey += "\x00new"
	}

	// The flight leader receives its entry already pinned. A waiter pins on
	// its own, and the entry can be released or swept before it does; the
	// retry then usually makes that waiter the leader of a fresh flight.
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		var led bool
		ch := m.flights.DoChan(flightKey, func() (any, error) {
			led = true
			return m.openAndPublish(ctx, cfg, key, forceNew)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			go m.abandon(ch, &led)
			return nil, errors.Connection(cfg.Kind, "waiting for connection", ctx.Err())
		}
		if res.Err != nil {
			return nil, res.Err
		}
		e := res.Val.(*Entry)
		if led || m.reg.pin(e, m.now()) {
			return &Lease{m: m, entry: e}, nil
		}
		if !forceNew {
			if e, ok := m.reg.lookup(cfg.Kind, key, m.now()); ok {
				return &Lease{m: m, entry: e}, nil
			}
		}
	}
	return nil, errors.Connection(cfg.Kind, "connection was released during acquisition", nil)
}

const acquireAttempts = 3

// abandon drops the pin a cancelled leader's flight took on its behalf.
func (m *Manager) abandon(ch <-chan singleflight.Result, led *bool) {
	res := <-ch
	if res.Err != nil || !*led {
		return
	}
	(&Lease{m: m, entry: res.Val.(*Entry)}).Release()
}

func (m *Manager) openAndPublish(ctx context.Context, cfg backend.Config, key backend.Key, forceNew bool) (*Entry, error) {
	// A caller arriving after an earlier flight completed finds its result
	// here. Either way the entry comes back pinned for the leader.
	if !forceNew {
		if e, ok := m.reg.lookup(cfg.Kind, key, m.now()); ok {
			return e, nil
		}
	}

	opener, ok := m.openers[cfg.Kind]
	if !ok {
		return nil, errors.Connection(cfg.Kind, "no opener registered", nil)
	}

	// The open is shared by every waiter, so one caller's cancellation must
	// not fail the others.
	openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.connectTimeout)
	defer cancel()

	start := m.now()
	h, err := opener.Open(openCtx, cfg)
	if err != nil {
		observe.ConnectionErrors.WithLabelValues(string(cfg.Kind), "open").Inc()
		m.log.Warn("connection failed", "backend", cfg.Kind, "address", observe.Mask(cfg.Address()), "error", observe.Mask(err.Error()))
		return nil, errors.Connection(cfg.Kind, fmt.Sprintf("failed to connect to %s", observe.Mask(cfg.Address())), err)
	}

	now := m.now()
	e := &Entry{
		ID:        uuid.New(),
		Kind:      cfg.Kind,
		Key:       key,
		Handle:    h,
		CreatedAt: now,
		lastUsed:  now,
		inUse:     1,
	}
	old, closeOld, published := m.reg.publish(e)
	if !published {
		m.closeEntry(context.Background(), e, reasonShutdown)
		return nil, errors.Connection(cfg.Kind, "connection manager is closed", nil)
	}

	observe.ConnectionsOpened.WithLabelValues(string(cfg.Kind)).Inc()
	observe.ActiveConnections.WithLabelValues(string(cfg.Kind)).Inc()
	m.log.Info("connection opened", "backend", cfg.Kind, "key", key, "id", e.ID, "took", now.Sub(start))

	if old != nil {
		observe.ActiveConnections.WithLabelValues(string(cfg.Kind)).Dec()
		if closeOld {
			m.closeEntry(context.Background(), old, reasonReplaced)
		}
	}
	return e, nil
}

// Release closes and removes the entry for (kind, key). A missing entry is
// not an error and reports zero.
func (m *Manager) Release(ctx context.Context, kind backend.Kind, key backend.Key) (int, error) {
	rm, ok := m.reg.remove(kind, key)
	if !ok {
		return 0, nil
	}
	return 1, m.closeRemoved(ctx, []removed{rm}, reasonReleased)
}

// ReleaseKind closes every entry of one kind. Close failures are collected,
// never short-circuit the rest, and the count covers every removed entry.
func (m *Manager) ReleaseKind(ctx context.Context, kind backend.Kind) (int, error) {
	rms := m.reg.removeKind(kind)
	return len(rms), m.closeRemoved(ctx, rms, reasonReleased)
}

// ReleaseAll closes every entry of every kind, best effort.
func (m *Manager) ReleaseAll(ctx context.Context) (int, error) {
	rms := m.reg.removeAll()
	return len(rms), m.closeRemoved(ctx, rms, reasonReleased)
}

// ListActive lists published connections sorted by kind, then key.
func (m *Manager) ListActive() []Info { return m.reg.Snapshot() }

// Close drains the registry. Later acquisitions fail and late flight
// results are closed instead of published.
func (m *Manager) Close(ctx context.Context) error {
	rms := m.reg.drain()
	if len(rms) > 0 {
		m.log.Info("draining connections", "count", len(rms))
	}
	return m.closeRemoved(ctx, rms, reasonShutdown)
}

func (m *Manager) closeRemoved(ctx context.Context, rms []removed, reason string) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, rm := range rms {
		observe.ActiveConnections.WithLabelValues(string(rm.entry.Kind)).Dec()
		if !rm.closeable {
			// Still leased: the last Lease.Release closes it.
			continue
		}
		rm := rm
		g.Go(func() error {
			if err := m.closeEntry(gctx, rm.entry, reason); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}

func (m *Manager) closeEntry(ctx context.Context, e *Entry, reason string) error {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.connectTimeout)
	defer cancel()
	if err := e.Handle.Close(closeCtx); err != nil {
		observe.ConnectionErrors.WithLabelValues(string(e.Kind), "close").Inc()
		m.log.Warn("close failed", "backend", e.Kind, "key", e.Key, "id", e.ID, "reason", reason, "error", observe.Mask(err.Error()))
		return errors.Connection(e.Kind, fmt.Sprintf("failed to close %s", e.Key), err)
	}
	observe.ConnectionsClosed.WithLabelValues(string(e.Kind), reason).Inc()
	m.log.Info("connection closed", "backend", e.Kind, "key", e.Key, "id", e.ID, "reason", reason)
	return nil
}
