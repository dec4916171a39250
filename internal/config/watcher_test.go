package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/pidone/internal/logging"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error: %v", err)
		}
	})
}

// trySend never blocks the watch goroutine.
func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
		var zero T
		return zero
	}
}

func TestConfigWatcher_Reload(t *testing.T) {
	path := writeFile(t, "watched.toml", "name = \"initial\"\nvalue = 1\n")

	received := make(chan testConfig, 1)
	w := NewConfigWatcher(path, loadTestConfig, testLogger(), WithDebounce[testConfig](20*time.Millisecond))
	w.OnReload(func(cfg testConfig) { trySend(received, cfg) })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := receive(t, received); got.Name != "updated" || got.Value != 2 {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestConfigWatcher_RenameReplace(t *testing.T) {
	path := writeFile(t, "watched.toml", "name = \"initial\"\n")

	received := make(chan testConfig, 1)
	w := NewConfigWatcher(path, loadTestConfig, testLogger(), WithDebounce[testConfig](20*time.Millisecond))
	w.OnReload(func(cfg testConfig) { trySend(received, cfg) })
	startWatcher(t, w)

	tmp := filepath.Join(filepath.Dir(path), ".watched.toml.swp")
	if err := os.WriteFile(tmp, []byte("name = \"replaced\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	if got := receive(t, received); got.Name != "replaced" {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeFile(t, "watched.toml", "name = \"initial\"\n")

	var calls atomic.Int32
	w := NewConfigWatcher(path, loadTestConfig, testLogger(), WithDebounce[testConfig](10*time.Millisecond))
	w.OnReload(func(testConfig) { calls.Add(1) })
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("handler called %d times for an unrelated file", calls.Load())
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := writeFile(t, "watched.toml", "value = 0\n")

	var calls atomic.Int32
	last := make(chan testConfig, 10)
	w := NewConfigWatcher(path, loadTestConfig, testLogger(), WithDebounce[testConfig](150*time.Millisecond))
	w.OnReload(func(cfg testConfig) {
		calls.Add(1)
		last <- cfg
	})
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("value = %d\n", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := receive(t, last); got.Value != 5 {
		t.Errorf("value = %d, want 5", got.Value)
	}
	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}
}

func TestConfigWatcher_ErrorHandlerAndUnsubscribe(t *testing.T) {
	path := writeFile(t, "watched.toml", "name = \"ok\"\n")

	errs := make(chan error, 1)
	var calls atomic.Int32
	w := NewConfigWatcher(path, loadTestConfig, testLogger(),
		WithDebounce[testConfig](20*time.Millisecond),
		WithErrorHandler[testConfig](func(err error) { trySend(errs, err) }))
	unsub := w.OnReload(func(testConfig) { calls.Add(1) })
	unsub()
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("name = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := receive(t, errs); err == nil {
		t.Error("expected a load error")
	}

	if err := os.WriteFile(path, []byte("name = \"fixed\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("unsubscribed handler called %d times", calls.Load())
	}
}

func TestConfigWatcher_StartMissingDirectory(t *testing.T) {
	w := NewConfigWatcher("/nonexistent/dir/pidone.toml", loadTestConfig, testLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("Start() should fail for a missing directory")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() after failed Start = %v", err)
	}
}

func TestLevelWatcher(t *testing.T) {
	path := writeFile(t, "pidone.toml", "[logging]\nlevel = \"info\"\n")
	logging.Initialize(logging.Config{Level: "info", Format: "text"})
	logger := logging.GetLogger("level-watcher-test")

	applied := make(chan logging.Config, 1)
	w := NewLevelWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithDebounce[logging.Config](20*time.Millisecond))
	w.OnReload(func(cfg logging.Config) { trySend(applied, cfg) })
	startWatcher(t, w)

	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled before reload")
	}

	content := "[logging]\nlevel = \"info\"\n\n[logging.modules]\nlevel-watcher-test = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	receive(t, applied)

	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("module level not applied after reload")
	}
}

func TestLevelWatcherKeepsLevelsOnBadFile(t *testing.T) {
	path := writeFile(t, "pidone.toml", "[logging]\nlevel = \"info\"\n")

	errs := make(chan error, 1)
	w := NewLevelWatcher(path, testLogger(),
		WithDebounce[logging.Config](20*time.Millisecond),
		WithErrorHandler[logging.Config](func(err error) { trySend(errs, err) }))
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := receive(t, errs); err == nil || errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want a validation error", err)
	}
}
