package workers

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artpar/helmvalidator/internal/shell/scratch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type mockSweeper struct {
	mu      sync.Mutex
	calls   int
	maxAges []time.Duration
	removed int
	err     error
}

func (m *mockSweeper) Sweep(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.maxAges = append(m.maxAges, maxAge)
	return m.removed, m.err
}

func (m *mockSweeper) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================================================================
// Test Configuration
// =============================================================================

func TestDefaultJanitorConfig(t *testing.T) {
	config := DefaultJanitorConfig()

	assert.Equal(t, 10*time.Minute, config.Interval)
	assert.Equal(t, time.Hour, config.MaxAge)
}

func TestNewJanitor_DefaultConfig(t *testing.T) {
	j := NewJanitor(&mockSweeper{}, JanitorConfig{}, nil)

	assert.Equal(t, 10*time.Minute, j.config.Interval)
	assert.Equal(t, time.Hour, j.config.MaxAge)
}

func TestNewJanitor_CustomConfig(t *testing.T) {
	j := NewJanitor(&mockSweeper{}, JanitorConfig{
		Interval: time.Minute,
		MaxAge:   5 * time.Minute,
	}, slog.Default())

	assert.Equal(t, time.Minute, j.config.Interval)
	assert.Equal(t, 5*time.Minute, j.config.MaxAge)
}

// =============================================================================
// Test Lifecycle
// =============================================================================

func TestJanitor_StartStop(t *testing.T) {
	s := &mockSweeper{}
	j := NewJanitor(s, JanitorConfig{Interval: 20 * time.Millisecond}, slog.Default())

	j.Start()
	assert.Eventually(t, func() bool { return s.callCount() >= 2 }, time.Second, 10*time.Millisecond)
	j.Stop()

	// No sweeps after Stop returns
	calls := s.callCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, s.callCount())

	// Should be able to start again
	j.Start()
	j.Stop()
}

func TestJanitor_StopWithoutStart(t *testing.T) {
	j := NewJanitor(&mockSweeper{}, JanitorConfig{}, nil)

	// Stop without start should not panic
	j.Stop()
}

// =============================================================================
// Test Sweep
// =============================================================================

func TestJanitor_SweepNow(t *testing.T) {
	s := &mockSweeper{removed: 3}
	j := NewJanitor(s, JanitorConfig{MaxAge: 30 * time.Minute}, nil)

	assert.Equal(t, 3, j.SweepNow())
	assert.Equal(t, []time.Duration{30 * time.Minute}, s.maxAges)
}

func TestJanitor_SweepNow_Error(t *testing.T) {
	s := &mockSweeper{removed: 2, err: errors.New("permission denied")}
	j := NewJanitor(s, JanitorConfig{}, nil)

	assert.Zero(t, j.SweepNow())
}

func TestJanitor_WithScratchManager(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "1_stale.tgz")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	j := NewJanitor(scratch.New(dir, nil), JanitorConfig{MaxAge: time.Hour}, nil)

	assert.Equal(t, 1, j.SweepNow())
	assert.NoFileExists(t, stale)
}
