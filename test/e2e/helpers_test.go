//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testProject is a project directory with its own user config and hosts
// file.
type testProject struct {
	Dir       string
	HostsFile string
	env       []string
}

// newProject writes simon.yaml into a fresh directory. The remote shell is
// plain sh running in a second directory, which stands in for the virtual
// machine.
func newProject(t *testing.T, extra string) *testProject {
	t.Helper()

	dir := t.TempDir()
	remote := t.TempDir()
	hostsFile := filepath.Join(t.TempDir(), "hosts")
	writeFile(t, hostsFile, "127.0.0.1\tlocalhost\n")

	cfg := strings.Join([]string{
		"ip: 10.0.0.5",
		"domain: shop.test",
		"managers: [npm]",
		"hosts_file: " + hostsFile,
		"vagrant:",
		"  shell: sh",
		"  dir: " + remote,
		extra,
	}, "\n")
	writeFile(t, filepath.Join(dir, "simon.yaml"), cfg)

	return &testProject{
		Dir:       dir,
		HostsFile: hostsFile,
		env: append(os.Environ(),
			"XDG_CONFIG_HOME="+t.TempDir(),
			"XDG_STATE_HOME="+t.TempDir(),
		),
	}
}

// command prepares simon with args in the project directory.
func (p *testProject) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	cmd.Dir = p.Dir
	cmd.Env = p.env
	return cmd
}

// run executes simon and returns its combined output and exit code.
func (p *testProject) run(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := p.command(ctx, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out.String(), 0
	case errors.As(err, &exitErr):
		return out.String(), exitErr.ExitCode()
	default:
		t.Fatalf("run simon %v: %v", args, err)
		return "", -1
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
