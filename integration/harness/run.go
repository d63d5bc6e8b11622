package harness

import (
	"bytes"
	"os"
	"os/exec"
	"sort"
	"strings"
	"testing"
)

// Result is the captured outcome of one nlvreport invocation.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Output joins stdout and stderr for assertions that do not care which
// stream a message went to.
func (r Result) Output() string {
	return r.Stdout + r.Stderr
}

// CLI runs the nlvreport binary against one workspace.
type CLI struct {
	Bin       string
	Workspace string
	// Dir is the working directory; it should sit outside the workspace so
	// tests catch paths resolved relative to the cwd.
	Dir string
	Env map[string]string
}

// Run executes nlvreport with args, prefixed by --workspace when set.
func (c CLI) Run(t *testing.T, args ...string) Result {
	t.Helper()
	if c.Workspace != "" {
		args = append([]string{"--workspace", c.Workspace}, args...)
	}

	cmd := exec.Command(c.Bin, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = withEnv(os.Environ(), c.Env)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		ee, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("run nlvreport %s: %v", strings.Join(args, " "), err)
		}
		res.Code = ee.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

// MustRun is Run that fails the test on a non-zero exit code.
func (c CLI) MustRun(t *testing.T, args ...string) Result {
	t.Helper()
	res := c.Run(t, args...)
	if res.Code != 0 {
		t.Fatalf("nlvreport %s exit code %d\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), res.Code, res.Stdout, res.Stderr)
	}
	return res
}

// WithoutEnv returns a copy of c that runs with the inherited environment only.
func (c CLI) WithoutEnv() CLI {
	c.Env = nil
	return c
}

func withEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, replaced := overrides[key]; replaced {
			continue
		}
		out = append(out, entry)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
