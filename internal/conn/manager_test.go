package conn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	gwerrors "github.com/shakram02/go-mcp-db-gateway/internal/errors"
)

type fakeHandle struct {
	n        int64
	closed   atomic.Bool
	closeErr error
}

func (h *fakeHandle) Ping(context.Context) error { return nil }

func (h *fakeHandle) Close(context.Context) error {
	h.closed.Store(true)
	return h.closeErr
}

type fakeOpener struct {
	opens    atomic.Int64
	gate     chan struct{}
	err      error
	closeErr error
}

func (o *fakeOpener) Open(ctx context.Context, _ backend.Config) (Handle, error) {
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	return &fakeHandle{n: o.opens.Add(1), closeErr: o.closeErr}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, o *fakeOpener) (*Manager, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(Options{
		Openers: map[backend.Kind]Opener{
			backend.SQLite:   o,
			backend.Postgres: o,
			backend.MySQL:    o,
			backend.MongoDB:  o,
		},
		ConnectTimeout: time.Second,
		Now:            clk.Now,
	})
	return m, clk
}

var pgCfg = backend.Config{Kind: backend.Postgres, Database: "shop", User: "app"}

func TestAcquire_ReusesHandle(t *testing.T) {
	o := &fakeOpener{}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	l1, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	l1.Release()

	l2, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	defer l2.Release()

	assert.Same(t, l1.Handle(), l2.Handle())
	assert.Equal(t, int64(1), o.opens.Load())
	assert.Len(t, m.ListActive(), 1)
}

func TestAcquire_EquivalentConfigsShareKey(t *testing.T) {
	o := &fakeOpener{}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	explicit := pgCfg
	explicit.Host = "localhost"
	explicit.Port = 5432
	explicit.Password = "other"

	l1, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	l2, err := m.Acquire(ctx, explicit, false)
	require.NoError(t, err)
	l1.Release()
	l2.Release()

	assert.Equal(t, int64(1), o.opens.Load())
}

func TestAcquire_PasswordPolicySeparatesKeys(t *testing.T) {
	o := &fakeOpener{}
	m, _ := newTestManager(t, o)
	m.policy = backend.KeyPolicy{IncludePassword: true}
	ctx := context.Background()

	a, b := pgCfg, pgCfg
	a.Password, b.Password = "one", "two"

	l1, err := m.Acquire(ctx, a, false)
	require.NoError(t, err)
	l2, err := m.Acquire(ctx, b, false)
	require.NoError(t, err)
	l1.Release()
	l2.Release()

	assert.Equal(t, int64(2), o.opens.Load())
}

func TestAcquire_ConcurrentSameKeyOpensOnce(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	const callers = 16
	handles := make([]Handle, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := m.Acquire(ctx, pgCfg, false)
			if !assert.NoError(t, err) {
				return
			}
			handles[i] = l.Handle()
			l.Release()
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(o.gate)
	wg.Wait()

	assert.Equal(t, int64(1), o.opens.Load())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Len(t, m.ListActive(), 1)
}

func TestAcquire_FailedOpenLeavesNoEntry(t *testing.T) {
	o := &fakeOpener{err: errors.New("password authentication failed")}
	m, _ := newTestManager(t, o)

	_, err := m.Acquire(context.Background(), pgCfg, false)
	require.Error(t, err)
	assert.True(t, gwerrors.IsKind(err, gwerrors.ConnectionFailed))
	assert.Empty(t, m.ListActive())
}

func TestAcquire_InvalidConfig(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	_, err := m.Acquire(context.Background(), backend.Config{Kind: backend.SQLite}, false)
	require.Error(t, err)
	assert.True(t, gwerrors.IsKind(err, gwerrors.InvalidArgument))
}

func TestAcquire_ForceNewReplacesAndClosesOld(t *testing.T) {
	o := &fakeOpener{}
	m, _ := newTestManager(t, o)
	ctx := context.Background()
	cfg := backend.Config{Kind: backend.MongoDB, Database: "app"}

	l1, err := m.Acquire(ctx, cfg, false)
	require.NoError(t, err)
	l1.Release()
	old := l1.Handle().(*fakeHandle)

	l2, err := m.Acquire(ctx, cfg, true)
	require.NoError(t, err)
	defer l2.Release()

	assert.NotSame(t, old, l2.Handle())
	assert.True(t, old.closed.Load())
	assert.Equal(t, int64(2), o.opens.Load())
	assert.Len(t, m.ListActive(), 1)
}

func TestAcquire_ForceNewDefersCloseWhileLeased(t *testing.T) {
	o := &fakeOpener{}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	l1, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	old := l1.Handle().(*fakeHandle)

	l2, err := m.Acquire(ctx, pgCfg, true)
	require.NoError(t, err)
	defer l2.Release()

	assert.False(t, old.closed.Load())
	l1.Release()
	assert.True(t, old.closed.Load())
}

func TestRelease_MissingKeyIsNoop(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	n, err := m.Release(context.Background(), backend.Postgres, "nope:5432:x:y")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRelease_ClosesAndRemoves(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	ctx := context.Background()

	l, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	l.Release()

	n, err := m.Release(ctx, backend.Postgres, l.Key())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, l.Handle().(*fakeHandle).closed.Load())
	assert.Empty(t, m.ListActive())
}

func TestReleaseAll_BestEffort(t *testing.T) {
	o := &fakeOpener{closeErr: errors.New("broken pipe")}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	for _, cfg := range []backend.Config{
		pgCfg,
		{Kind: backend.MySQL, Database: "shop"},
		{Kind: backend.SQLite, Path: t.TempDir() + "/a.db"},
	} {
		l, err := m.Acquire(ctx, cfg, false)
		require.NoError(t, err)
		l.Release()
	}

	n, err := m.ReleaseAll(ctx)
	assert.Equal(t, 3, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Empty(t, m.ListActive())
}

func TestReleaseKind(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	ctx := context.Background()

	for _, db := range []string{"a", "b"} {
		l, err := m.Acquire(ctx, backend.Config{Kind: backend.MySQL, Database: db}, false)
		require.NoError(t, err)
		l.Release()
	}
	l, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	l.Release()

	n, err := m.ReleaseKind(ctx, backend.MySQL)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active := m.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, backend.Postgres, active[0].Kind)
}

func TestListActive_Sorted(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	ctx := context.Background()

	for _, cfg := range []backend.Config{
		{Kind: backend.Postgres, Database: "z"},
		{Kind: backend.MySQL, Database: "b"},
		{Kind: backend.Postgres, Database: "a"},
	} {
		l, err := m.Acquire(ctx, cfg, false)
		require.NoError(t, err)
		l.Release()
	}

	active := m.ListActive()
	require.Len(t, active, 3)
	assert.Equal(t, backend.MySQL, active[0].Kind)
	assert.Equal(t, backend.Key("localhost:5432:a:postgres"), active[1].Key)
	assert.Equal(t, backend.Key("localhost:5432:z:postgres"), active[2].Key)
}

func TestClose_DrainsAndRefusesAcquire(t *testing.T) {
	m, _ := newTestManager(t, &fakeOpener{})
	ctx := context.Background()

	l, err := m.Acquire(ctx, pgCfg, false)
	require.NoError(t, err)
	l.Release()

	require.NoError(t, m.Close(ctx))
	assert.True(t, l.Handle().(*fakeHandle).closed.Load())

	_, err = m.Acquire(ctx, pgCfg, false)
	require.Error(t, err)
	assert.True(t, gwerrors.IsKind(err, gwerrors.ConnectionFailed))
}

func TestClose_LateFlightIsClosedNotPublished(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	m, _ := newTestManager(t, o)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, pgCfg, false)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Close(ctx))
	close(o.gate)

	err := <-errc
	require.Error(t, err)
	assert.Equal(t, 0, m.Registry().Len())
}

func TestAcquire_PublishedEntryIsPinnedForLeader(t *testing.T) {
	m, clk := newTestManager(t, &fakeOpener{})
	s := NewSweeper(m, time.Minute, time.Millisecond)
	ctx := context.Background()
	cfg := pgCfg.WithDefaults()

	e, err := m.openAndPublish(ctx, cfg, m.Key(cfg), false)
	require.NoError(t, err)

	// A sweep between publish and handing out the lease must not evict it.
	clk.Advance(time.Hour)
	assert.Equal(t, 0, s.Sweep(ctx, clk.Now()))
	require.Len(t, m.ListActive(), 1)
	assert.Equal(t, 1, m.ListActive()[0].InUse)

	(&Lease{m: m, entry: e}).Release()
	clk.Advance(time.Hour)
	assert.Equal(t, 1, s.Sweep(ctx, clk.Now()))
}

func TestAcquire_SweepAfterOpenDoesNotFailCallers(t *testing.T) {
	o := &fakeOpener{}
	m, clk := newTestManager(t, o)
	s := NewSweeper(m, time.Minute, time.Nanosecond)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			clk.Advance(time.Millisecond)
			s.Sweep(ctx, clk.Now())
		}
	}()
	for i := 0; i < 500; i++ {
		l, err := m.Acquire(ctx, pgCfg, false)
		require.NoError(t, err)
		l.Release()
	}
	<-done
}

func TestAcquire_CancelledLeaderDropsItsPin(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	m, _ := newTestManager(t, o)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, pgCfg, false)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.Error(t, <-errc)
	close(o.gate)

	assert.Eventually(t, func() bool {
		active := m.ListActive()
		return len(active) == 1 && active[0].InUse == 0
	}, time.Second, 5*time.Millisecond)
}
