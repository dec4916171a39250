package process

import (
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedWait replays a fixed list of wait4 results.
type scriptedWait struct {
	results []waitResult
	calls   int
}

type waitResult struct {
	pid    int
	status unix.WaitStatus
	err    error
}

func (s *scriptedWait) wait(_ int, ws *unix.WaitStatus, options int, _ *unix.Rusage) (int, error) {
	if options&unix.WNOHANG == 0 {
		panic("wait must be non-blocking")
	}
	if s.calls >= len(s.results) {
		return 0, nil
	}
	r := s.results[s.calls]
	s.calls++
	*ws = r.status
	return r.pid, r.err
}

// Linux wait status encodings.
func exitedStatus(code int) unix.WaitStatus { return unix.WaitStatus(uint32(code) << 8) }

func signaledStatus(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(uint32(sig)) }

func stoppedStatus(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(0x7f | uint32(sig)<<8) }

func TestTryReap(t *testing.T) {
	tests := []struct {
		name     string
		result   waitResult
		want     Carcass
		wantOK   bool
		wantTerm Termination
	}{
		{
			name:     "exit zero",
			result:   waitResult{pid: 42, status: exitedStatus(0)},
			want:     Carcass{PID: 42, Status: 0},
			wantOK:   true,
			wantTerm: ExitedZero,
		},
		{
			name:     "exit non-zero",
			result:   waitResult{pid: 43, status: exitedStatus(3)},
			want:     Carcass{PID: 43, Status: 3},
			wantOK:   true,
			wantTerm: ExitedNonZero,
		},
		{
			name:     "killed by signal",
			result:   waitResult{pid: 44, status: signaledStatus(unix.SIGKILL)},
			want:     Carcass{PID: 44, Signal: unix.SIGKILL},
			wantOK:   true,
			wantTerm: Signaled,
		},
		{
			name:   "nothing to reap",
			result: waitResult{pid: 0},
		},
		{
			name:   "no children",
			result: waitResult{pid: -1, err: unix.ECHILD},
		},
		{
			name:   "unexpected error",
			result: waitResult{pid: -1, err: unix.EINVAL},
		},
		{
			name:   "stopped child is uninterpreted",
			result: waitResult{pid: 45, status: stoppedStatus(unix.SIGSTOP)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &scriptedWait{results: []waitResult{tt.result}}
			r := NewReaperWithWait(sw.wait, testLogger())

			got, ok := r.TryReap()
			if ok != tt.wantOK {
				t.Fatalf("TryReap() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("TryReap() = %+v, want %+v", got, tt.want)
			}
			if got.Termination() != tt.wantTerm {
				t.Errorf("Termination() = %s, want %s", got.Termination(), tt.wantTerm)
			}
		})
	}
}

func TestTryReapRetriesEINTR(t *testing.T) {
	sw := &scriptedWait{results: []waitResult{
		{pid: -1, err: unix.EINTR},
		{pid: -1, err: unix.EINTR},
		{pid: 7, status: exitedStatus(1)},
	}}
	r := NewReaperWithWait(sw.wait, testLogger())

	got, ok := r.TryReap()
	if !ok || got.PID != 7 || got.Status != 1 {
		t.Fatalf("TryReap() = %+v, %v; want pid 7 status 1", got, ok)
	}
	if sw.calls != 3 {
		t.Errorf("wait called %d times, want 3", sw.calls)
	}
}

func TestTryReapOneCallPerInvocation(t *testing.T) {
	sw := &scriptedWait{results: []waitResult{
		{pid: 10, status: exitedStatus(0)},
		{pid: 11, status: exitedStatus(0)},
	}}
	r := NewReaperWithWait(sw.wait, testLogger())

	first, _ := r.TryReap()
	if sw.calls != 1 {
		t.Fatalf("wait called %d times after one TryReap, want 1", sw.calls)
	}
	second, _ := r.TryReap()
	if first.PID != 10 || second.PID != 11 {
		t.Errorf("reaped %d then %d, want 10 then 11", first.PID, second.PID)
	}
	if _, ok := r.TryReap(); ok {
		t.Error("expected nothing left to reap")
	}
}

// reapPID drains the real reaper until pid shows up.
func reapPID(t *testing.T, r *Reaper, pid int) Carcass {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := r.TryReap(); ok && c.PID == pid {
			return c
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting to reap pid %d", pid)
	return Carcass{}
}

func TestReapRealChild(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	s := NewSpawner(testLogger())
	r := NewReaper(testLogger())

	t.Run("exit status", func(t *testing.T) {
		pid, err := s.Start(StartRequest{Name: "exit3", Path: "sh", Args: []string{"-c", "exit 3"}})
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		c := reapPID(t, r, pid)
		if c.Termination() != ExitedNonZero || c.Status != 3 {
			t.Errorf("reaped %s, want exit 3", c)
		}
		// A reaped pid is gone for good.
		if c2, ok := r.TryReap(); ok && c2.PID == pid {
			t.Errorf("pid %d reaped twice", pid)
		}
	})

	t.Run("signal", func(t *testing.T) {
		pid, err := s.Start(StartRequest{Name: "selfkill", Path: "sh", Args: []string{"-c", "kill -TERM $$"}})
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		c := reapPID(t, r, pid)
		if c.Termination() != Signaled || c.Signal != unix.SIGTERM {
			t.Errorf("reaped %s, want SIGTERM", c)
		}
	})
}
