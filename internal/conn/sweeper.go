package conn

import (
	"context"
	"log/slog"
	"time"

	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
)

const (
	DefaultSweepInterval = 60 * time.Second
	DefaultIdleTimeout   = 300 * time.Second
)

// Sweeper periodically evicts connections that have been idle for longer
// than IdleTimeout and are not leased.
type Sweeper struct {
	m        *Manager
	interval time.Duration
	idle     time.Duration
	log      *slog.Logger
}

func NewSweeper(m *Manager, interval, idle time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sweeper{m: m, interval: interval, idle: idle, log: m.log.With("component", "sweeper")}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("sweeper started", "interval", s.interval, "idle_timeout", s.idle)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, s.m.now())
		}
	}
}

// Sweep evicts every idle, unleased entry as of now and returns how many
// were removed. Close failures are logged and do not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) int {
	evicted := s.m.reg.removeIdle(now, s.idle)
	for _, e := range evicted {
		observe.ActiveConnections.WithLabelValues(string(e.Kind)).Dec()
		if err := e.Handle.Close(ctx); err != nil {
			observe.ConnectionErrors.WithLabelValues(string(e.Kind), "evict").Inc()
			s.log.Warn("eviction failed", "error", observe.Mask(errors.Eviction(e.Kind, string(e.Key), err).Error()), "id", e.ID)
			continue
		}
		observe.ConnectionsClosed.WithLabelValues(string(e.Kind), reasonEvicted).Inc()
		s.log.Info("evicted idle connection", "backend", e.Kind, "key", e.Key, "id", e.ID, "idle", now.Sub(e.lastUsed))
	}
	return len(evicted)
}
