package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smazurov/pidone/internal/process"
)

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pidone.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheck(t *testing.T) {
	color.NoColor = true
	path := writeConfig(t, `
[logging]
level = "debug"

[[commands]]
path = "/usr/sbin/sshd"
args = "-D"
restart_on_error = true
spawn_limit = 5
`)

	out, _, err := run(t, CreateCheckCmd(), path, "--exec", "/bin/sleep 60")
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	for _, want := range []string{"2 command(s)", "/usr/sbin/sshd -D", "5 spawns", "/bin/sleep 60", "unlimited"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		args    []string
	}{
		{"bad level", "[logging]\nlevel = \"loud\"\n", nil},
		{"missing path", "[[commands]]\nname = \"x\"\n", nil},
		{"exec name clash", "[[commands]]\npath = \"/bin/sleep\"\n", []string{"--exec", "/usr/bin/sleep 5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{writeConfig(t, tt.content)}, tt.args...)
			if _, _, err := run(t, CreateCheckCmd(), args...); err == nil {
				t.Error("check succeeded, want error")
			}
		})
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, CreateVersionCmd(), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if info["version"] == "" || info["go_version"] == nil {
		t.Errorf("info = %v", info)
	}

	out, _, err = run(t, CreateVersionCmd())
	if err != nil || !strings.HasPrefix(out, "pidone ") {
		t.Errorf("version = %q, %v", out, err)
	}
}

func statLine(pid, ppid int, comm string) string {
	return fmt.Sprintf("%d (%s) S %d %d %d 0 -1 4194560 120 0 0 0 3 1 0 0 20 0 1 0 1234 8437760 512 "+
		"18446744073709551615 1 1 0 0 0 0 0 4096 0 0 0 0 17 2 0 0 0 0 0 0 0 0 0 0 0 0 0\n",
		pid, comm, ppid, pid, pid)
}

func TestChildren(t *testing.T) {
	root := t.TempDir()
	for pid, stat := range map[int]string{
		1:  statLine(1, 0, "pidone"),
		20: statLine(20, 1, "sshd"),
		21: statLine(21, 20, "sshd-session"),
	} {
		dir := filepath.Join(root, fmt.Sprint(pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := run(t, CreateChildrenCmd(), "--proc", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "20") || !strings.Contains(out, "sshd") || strings.Contains(out, "sshd-session") {
		t.Errorf("children of 1:\n%s", out)
	}

	out, _, err = run(t, CreateChildrenCmd(), "--proc", root, "20")
	if err != nil || !strings.Contains(out, "sshd-session") {
		t.Errorf("children of 20 = %q, %v", out, err)
	}

	_, stderr, err := run(t, CreateChildrenCmd(), "--proc", root, "21")
	if err != nil || !strings.Contains(stderr, "no children") {
		t.Errorf("children of 21 stderr = %q, %v", stderr, err)
	}

	if _, _, err := run(t, CreateChildrenCmd(), "--proc", root, "abc"); err == nil {
		t.Error("invalid pid accepted")
	}
}

func TestPrintChildrenStartTime(t *testing.T) {
	now := time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC)
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := printChildren(cmd, []process.Info{
		{PID: 5, Comm: "cron", State: "S", Started: now.Add(-2 * time.Hour)},
		{PID: 6, Comm: "getty", State: "S"},
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "2 hours ago") {
		t.Errorf("output missing relative start time:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "-") {
		t.Errorf("unknown start time should render as -:\n%s", out.String())
	}
}
