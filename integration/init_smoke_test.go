package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adeleeuw3/NLVreport/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")
	cli := harness.CLI{Bin: harness.BuildBinary(t), Dir: t.TempDir()}
	cli.MustRun(t, "init", "--workspace", workspaceRoot)

	again := cli.MustRun(t, "--workspace", workspaceRoot, "init")
	if !strings.Contains(again.Stdout, "Initialized workspace") {
		t.Fatalf("re-running init should succeed\n%s", again.Output())
	}

	paths := []string{
		filepath.Join(workspaceRoot, "data"),
		filepath.Join(workspaceRoot, "exports"),
		filepath.Join(workspaceRoot, "imports"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "data", "nlvreport.sqlite"),
		filepath.Join(workspaceRoot, "nlvreport.yml"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}
	cfg, err := os.ReadFile(filepath.Join(workspaceRoot, "nlvreport.yml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(cfg), "headlines:") {
		t.Fatalf("config missing overview defaults:\n%s", cfg)
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	if _, err := os.Stat(auditPath); err != nil {
		t.Fatalf("audit db not written at %s: %v", auditPath, err)
	}
	requireAuditEvents(t, auditPath, []string{
		"workspace_init_started",
		"workspace_init_finished",
	})
}
