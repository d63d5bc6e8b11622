package integration_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adeleeuw3/NLVreport/integration/harness"
)

func TestCLISmoke(t *testing.T) {
	workspace := harness.CopyFixture(t, "workspace-min", t.TempDir())
	cli := harness.CLI{
		Bin:       harness.BuildBinary(t),
		Workspace: workspace,
		Dir:       t.TempDir(),
		Env:       map[string]string{"NLVREPORT_PASSWORD": "secret-pass"},
	}
	run := func(args ...string) (string, string) {
		t.Helper()
		res := cli.MustRun(t, args...)
		return res.Stdout, res.Stderr
	}

	help := harness.CLI{Bin: cli.Bin, Dir: cli.Dir}.Run(t, "--help")
	if help.Code != 0 {
		t.Fatalf("nlvreport --help exit code %d\n%s", help.Code, help.Output())
	}
	if !strings.Contains(help.Output(), "monthly KPI reporting") {
		t.Fatalf("expected help output to include header\n%s", help.Output())
	}

	run("init")
	run("auth", "signup", "--email", "owner@nlv.nl")
	stdout, _ := run("auth", "whoami")
	if !strings.Contains(stdout, "owner@nlv.nl") {
		t.Fatalf("whoami = %q", stdout)
	}

	run("report", "save", "--month", "Jan", "--file", filepath.Join(workspace, "imports", "jan.yml"))
	run("report", "save", "--month", "Mar", "--set", "gen_csat.data=9", "--set", "mkt_coffee.count=20")

	stdout, _ = run("report", "months")
	if strings.Fields(stdout)[0] != "Jan" || strings.Fields(stdout)[1] != "Mar" {
		t.Fatalf("months = %q", stdout)
	}

	stdout, stderr := run("story", "build", "--preset", "Q1", "--save", "--format", "json")
	var dash struct {
		RangeLabel string `json:"rangeLabel"`
		Overview   struct {
			Headlines []struct {
				ID     string `json:"id"`
				Series []struct {
					Value float64 `json:"value"`
				} `json:"series"`
			} `json:"headlines"`
		} `json:"overview"`
	}
	if err := json.Unmarshal([]byte(stdout), &dash); err != nil {
		t.Fatalf("decode story json: %v\n%s", err, stdout)
	}
	if dash.RangeLabel != "Jan - Mar 2025" {
		t.Fatalf("range label = %q", dash.RangeLabel)
	}
	if len(dash.Overview.Headlines) != 2 || dash.Overview.Headlines[0].ID != "gen_csat" {
		t.Fatalf("headlines = %+v", dash.Overview.Headlines)
	}
	if s := dash.Overview.Headlines[0].Series; len(s) != 3 || s[0].Value != 7 || s[2].Value != 9 {
		t.Fatalf("gen_csat series = %+v", s)
	}
	if !strings.Contains(stderr, "No data saved for Feb") {
		t.Fatalf("expected gap warning\nstderr:\n%s", stderr)
	}

	stdout, _ = run("dashboard", "list")
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		t.Fatalf("no dashboards listed")
	}
	id := fields[0]
	run("dashboard", "export", "--id", id)
	if _, err := os.Stat(filepath.Join(workspace, "exports", id+".json")); err != nil {
		t.Fatalf("export not written: %v", err)
	}

	stdout, _ = run("report", "diff", "--month", "Mar")
	if !strings.Contains(stdout, "+++ 2025-Mar") {
		t.Fatalf("diff output:\n%s", stdout)
	}

	run("auth", "signout")
	res := cli.WithoutEnv().Run(t, "report", "months")
	if res.Code == 0 || !strings.Contains(res.Stderr, "User not authenticated") {
		t.Fatalf("expected signed-out failure, code %d\nstderr:\n%s", res.Code, res.Stderr)
	}
	if res := cli.Run(t, "report", "save", "--month", "Apr", "--set", "mkt_coffee.count=1"); res.Code == 0 {
		t.Fatalf("save after signout should fail\n%s", res.Output())
	}

	auditPath := filepath.Join(workspace, "audit", "audit.sqlite")
	requireAuditEvents(t, auditPath, []string{
		"auth_signup_started",
		"auth_signup_finished",
		"report_save_started",
		"report_save_finished",
		"story_build_finished",
		"dashboard_export_finished",
		"auth_signout_finished",
	})
	requireAuditFailure(t, auditPath, "report_save_finished", "User not authenticated")

	engineAudit := filepath.Join(harness.RepoRoot(t), "audit", "audit.sqlite")
	if _, err := os.Stat(engineAudit); err == nil {
		t.Fatalf("engine repo audit db should not exist at %s", engineAudit)
	} else if !os.IsNotExist(err) {
		t.Fatalf("stat engine audit db: %v", err)
	}
}
