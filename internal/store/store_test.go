package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/support-chat/internal/domain"
	"github.com/ashureev/support-chat/internal/metrics"
)

func openStores(t *testing.T) map[string]SessionStore {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "data", "support.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]SessionStore{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC)
			cid := "customer-001"

			sess := domain.NewSession("SESSION-AAAA0001", &cid, now)
			sess.Append(domain.FromCustomer, "my invoice pdf export is broken", now.Add(time.Second))
			sess.Append(domain.FromSystem, "fix", now.Add(2*time.Second))
			sess.SetStatus(domain.StatusSelfServeInProgress)
			require.NoError(t, s.Put(ctx, sess))

			got, err := s.Get(ctx, "SESSION-AAAA0001")
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, sess.ID, got.ID)
			require.NotNil(t, got.CustomerID)
			assert.Equal(t, "customer-001", *got.CustomerID)
			assert.Equal(t, domain.StatusSelfServeInProgress, got.Status)
			assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, sess.UpdatedAt.Equal(got.UpdatedAt))
			require.Len(t, got.History, 2)
			assert.Equal(t, domain.FromCustomer, got.History[0].From)
			assert.Equal(t, "fix", got.History[1].Text)
			assert.True(t, sess.History[1].Timestamp.Equal(got.History[1].Timestamp))
		})
	}
}

func TestSessionStoreMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(context.Background(), "SESSION-NOPE")
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.NoError(t, s.Delete(context.Background(), "SESSION-NOPE"))
		})
	}
}

func TestSessionStorePutReplaces(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := domain.NewSession("SESSION-1", nil, time.Now())
			require.NoError(t, s.Put(ctx, sess))

			sess.Append(domain.FromCustomer, "hello", time.Now())
			sess.SetStatus(domain.StatusEscalatedToHuman)
			require.NoError(t, s.Put(ctx, sess))

			got, err := s.Get(ctx, "SESSION-1")
			require.NoError(t, err)
			assert.Nil(t, got.CustomerID)
			assert.Equal(t, domain.StatusEscalatedToHuman, got.Status)
			assert.Len(t, got.History, 1)

			require.NoError(t, s.Delete(ctx, "SESSION-1"))
			got, err = s.Get(ctx, "SESSION-1")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestSessionStoreDeleteExpired(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()

			require.NoError(t, s.Put(ctx, domain.NewSession("SESSION-OLD", nil, now.Add(-2*time.Hour))))
			require.NoError(t, s.Put(ctx, domain.NewSession("SESSION-NEW", nil, now)))

			expired, err := s.DeleteExpired(ctx, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, []string{"SESSION-OLD"}, expired)

			got, err := s.Get(ctx, "SESSION-NEW")
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	sess := domain.NewSession("SESSION-1", nil, time.Now())
	require.NoError(t, s.Put(ctx, sess))
	sess.Append(domain.FromCustomer, "not saved", time.Now())

	got, err := s.Get(ctx, "SESSION-1")
	require.NoError(t, err)
	assert.Empty(t, got.History)

	got.Append(domain.FromCustomer, "also not saved", time.Now())
	again, err := s.Get(ctx, "SESSION-1")
	require.NoError(t, err)
	assert.Empty(t, again.History)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				sess := domain.NewSession("SESSION-SHARED", nil, time.Now())
				_ = s.Put(ctx, sess)
				_, _ = s.Get(ctx, "SESSION-SHARED")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestSweepInvokesCallback(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, domain.NewSession("SESSION-OLD", nil, time.Now().Add(-time.Hour))))
	require.NoError(t, s.Put(ctx, domain.NewSession("SESSION-NEW", nil, time.Now())))

	m := metrics.New(prometheus.NewRegistry())
	var removed []string
	n := sweep(ctx, s, time.Minute, m, func(id string) { removed = append(removed, id) })

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"SESSION-OLD"}, removed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpiredTotal))
	assert.Equal(t, 1, s.Len())
}

func TestStartSweeperRunsOnInterval(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Put(ctx, domain.NewSession("SESSION-OLD", nil, time.Now().Add(-time.Hour))))

	StartSweeper(ctx, s, time.Minute, 10*time.Millisecond, nil, nil)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartSweeperDisabled(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Put(context.Background(), domain.NewSession("SESSION-OLD", nil, time.Now().Add(-time.Hour))))

	StartSweeper(context.Background(), s, 0, time.Millisecond, nil, nil)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, s.Len())
}

func TestOpen(t *testing.T) {
	s, err := Open(KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(KindSQLite, filepath.Join(t.TempDir(), "support.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.IsType(t, &SQLiteStore{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestIsConflictError(t *testing.T) {
	assert.False(t, isConflictError(nil))
	assert.False(t, isConflictError(assert.AnError))
	assert.True(t, isConflictError(&testErr{"SQLITE_BUSY: database busy"}))
	assert.True(t, isConflictError(&testErr{"database is locked"}))
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
