package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// resetState clears package state and points output at w.
func resetState(t *testing.T, w io.Writer) {
	t.Helper()
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	output = w
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState(t, io.Discard)

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"reaper": "debug",
			"output": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"reaper", true, true, true},
		{"output", false, false, true},
		{"orphan", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestModuleAttributeWritten(t *testing.T) {
	var buf bytes.Buffer
	resetState(t, &buf)
	Initialize(Config{Level: "debug", Format: "text"})

	GetLogger("reaper").Debug("Reaped process", "pid", 42)

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "msg=\"Reaped process\"", "module=reaper", "pid=42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	resetState(t, &buf)
	Initialize(Config{Level: "info", Format: "json"})

	GetLogger("orphan").Info("Sent SIGTERM", "pid", 7)

	if !strings.Contains(buf.String(), `"module":"orphan"`) {
		t.Errorf("JSON output missing module: %s", buf.String())
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState(t, io.Discard)

	before := GetLogger("reaper")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Modules: map[string]string{"reaper": "debug"},
	})

	if GetLogger("reaper") == before {
		t.Error("Initialize should rebuild loggers created earlier")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("earlier logger should share the updated level")
	}
}

func TestSetLevels(t *testing.T) {
	resetState(t, io.Discard)
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("command")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled before SetLevels")
	}

	SetLevels(Config{Level: "warn", Modules: map[string]string{"command": "debug"}})

	if GetLogger("command") != logger {
		t.Error("SetLevels should not rebuild loggers")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("command module should log debug after SetLevels")
	}
	if GetLogger("api").Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("new module should pick up global warn level")
	}

	levels := Levels()
	if levels["command"] != "debug" || levels["api"] != "warn" {
		t.Errorf("Levels() = %v", levels)
	}
}

func TestGetLoggerConcurrent(t *testing.T) {
	resetState(t, io.Discard)

	var wg sync.WaitGroup
	loggers := make([]*slog.Logger, 16)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = GetLogger("process")
		}(i)
	}
	wg.Wait()

	for i, l := range loggers {
		if l != loggers[0] {
			t.Errorf("goroutine %d got a different logger", i)
		}
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("info message")

	out := buf.String()
	if count := strings.Count(out, "debug only message"); count != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", count, out)
	}
	if count := strings.Count(out, "info message"); count != 2 {
		t.Errorf("info message written %d times, want 2. Output: %s", count, out)
	}
	if count := strings.Count(out, "module=test"); count != 3 {
		t.Errorf("module attribute written %d times, want 3", count)
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("journal unavailable") }

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	h := NewMultiHandler(nil, failingHandler{text}, text)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := h.Handle(context.Background(), r)
	if err == nil || !strings.Contains(err.Error(), "journal unavailable") {
		t.Errorf("Handle() error = %v", err)
	}
	if !strings.Contains(buf.String(), "still delivered") {
		t.Error("record not delivered to the healthy handler")
	}
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("empty group should return the same handler")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{" info ", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"invalid", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestJournalFields(t *testing.T) {
	levelVar := &slog.LevelVar{}
	h := NewJournalHandler(levelVar).
		WithAttrs([]slog.Attr{slog.String("module", "orphan")}).(*JournalHandler)

	r := slog.NewRecord(time.Unix(0, 0), slog.LevelWarn, "Orphan lingering", 0)
	r.AddAttrs(
		slog.Int("pid", 4242),
		slog.Bool("killed", true),
		slog.Duration("since", 2*time.Second),
		slog.Group("stat", slog.Int("ppid", 1)),
	)

	fields := h.fields(r)
	want := map[string]string{
		"SYSLOG_IDENTIFIER": "pidone",
		"MODULE":            "orphan",
		"PID":               "4242",
		"KILLED":            "true",
		"SINCE":             "2s",
		"STAT_PPID":         "1",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q (all: %v)", k, fields[k], v, fields)
		}
	}

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at info")
	}
	levelVar.Set(slog.LevelDebug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("journal handler should follow LevelVar changes")
	}
}

func TestJournalGroupPrefix(t *testing.T) {
	h := NewJournalHandler(slog.LevelInfo).WithGroup("proc").(*JournalHandler)

	r := slog.NewRecord(time.Unix(0, 0), slog.LevelInfo, "Scanned", 0)
	r.AddAttrs(slog.Int("ppid", 1))

	if got := h.fields(r)["PROC_PPID"]; got != "1" {
		t.Errorf("PROC_PPID = %q, want 1", got)
	}
}

func TestJournalFieldKey(t *testing.T) {
	tests := []struct {
		groups []string
		key    string
		want   string
	}{
		{nil, "remote_addr", "REMOTE_ADDR"},
		{nil, "user-agent", "USER_AGENT"},
		{[]string{"http"}, "status.code", "HTTP_STATUS_CODE"},
		{nil, "_pid", "PID"},
		{nil, "___", ""},
	}
	for _, tt := range tests {
		if got := fieldKey(tt.groups, tt.key); got != tt.want {
			t.Errorf("fieldKey(%v, %q) = %q, want %q", tt.groups, tt.key, got, tt.want)
		}
	}
}

func TestMapLevelToPriority(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  journal.Priority
	}{
		{slog.LevelDebug, journal.PriDebug},
		{slog.LevelInfo, journal.PriInfo},
		{slog.LevelWarn, journal.PriWarning},
		{slog.LevelError, journal.PriErr},
	}
	for _, tt := range tests {
		if got := mapLevelToPriority(tt.level); got != tt.want {
			t.Errorf("mapLevelToPriority(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
