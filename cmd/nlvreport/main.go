package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adeleeuw3/NLVreport/internal/audit"
	"github.com/adeleeuw3/NLVreport/internal/auth"
	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/config"
	"github.com/adeleeuw3/NLVreport/internal/notify"
	"github.com/adeleeuw3/NLVreport/internal/store"
	"github.com/adeleeuw3/NLVreport/internal/workspace"
)

const appName = "nlvreport"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: monthly KPI reporting and performance stories\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init       Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  auth       Sign up, sign in and out")
		fmt.Fprintln(os.Stderr, "  catalog    List KPI definitions")
		fmt.Fprintln(os.Stderr, "  report     Enter and manage monthly reports")
		fmt.Fprintln(os.Stderr, "  story      Build a performance story from a month range")
		fmt.Fprintln(os.Stderr, "  dashboard  Manage saved dashboards")
		fmt.Fprintln(os.Stderr, "  preview    Preview one KPI card from ad-hoc values")
		fmt.Fprintln(os.Stderr, "  serve      Run the HTTP API")
		fmt.Fprintln(os.Stderr, "  audit      Show recent audit events")
		fmt.Fprintln(os.Stderr, "  help       Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fail(err)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	commands := map[string]func([]string, string) error{
		"init":      runInit,
		"auth":      runAuth,
		"catalog":   runCatalog,
		"report":    runReport,
		"story":     runStory,
		"dashboard": runDashboard,
		"preview":   runPreview,
		"serve":     runServe,
		"audit":     runAudit,
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[1:], workspacePath); err != nil {
		fail(err)
	}
}

// fail reports err as an error toast and exits.
func fail(err error) {
	n := &notify.Notifier{Out: os.Stderr}
	_ = n.Send(notify.Error, err.Error())
	os.Exit(1)
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

// env is the opened workspace shared by every command.
type env struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	cat      *catalog.Catalog
	store    *store.Store
	auth     *auth.Service
	logger   *audit.Logger
	notifier *notify.Notifier
}

func openEnv(workspacePath string) (*env, error) {
	if strings.TrimSpace(workspacePath) == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(workspacePath)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(ws.ConfigPath)
	if err != nil {
		return nil, err
	}
	cat, err := cfg.Catalog(ws.ResolvePath)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateOverview(cfg, cat); err != nil {
		return nil, err
	}
	st, err := store.Open(ws.StoreDBPath)
	if err != nil {
		return nil, err
	}
	st.Catalog = cat
	return &env{
		ws:       ws,
		cfg:      cfg,
		cat:      cat,
		store:    st,
		auth:     auth.NewService(st),
		logger:   audit.NewLogger(ws.AuditDBPath),
		notifier: &notify.Notifier{Enabled: cfg.Notifications, Out: os.Stderr},
	}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}

// track wraps fn in <name>_started and <name>_finished audit events.
func (e *env) track(name string, payload map[string]any, fn func() error) error {
	start := map[string]any{"workspace": e.ws.Root}
	for k, v := range payload {
		start[k] = v
	}
	if err := e.logger.LogEvent("cli", name+"_started", start); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	err := fn()
	finish := map[string]any{"workspace": e.ws.Root}
	for k, v := range payload {
		finish[k] = v
	}
	if err != nil {
		finish["error"] = err.Error()
	}
	_ = e.logger.LogEvent("cli", name+"_finished", finish)
	return err
}

// currentUser returns the signed-in user or a sign-in hint.
func (e *env) currentUser(ctx context.Context) (*auth.User, error) {
	u, err := e.auth.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (run `%s auth signin`)", store.ErrNotAuthenticated, appName)
	}
	return u, nil
}

// year returns y, or the configured default year, or the current year.
func (e *env) year(y int) int {
	if y != 0 {
		return y
	}
	if e.cfg.DefaultYear != 0 {
		return e.cfg.DefaultYear
	}
	return time.Now().Year()
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	if err := logger.LogEvent("cli", "workspace_init_started", map[string]any{"workspace": ws.Root}); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{"workspace": ws.Root}
		if finishErr != nil {
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent("cli", "workspace_init_finished", finishPayload)
	}()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}
	cfgData, err := config.Marshal(config.Default())
	if err != nil {
		finishErr = err
		return finishErr
	}
	if err := writeFileIfMissing(ws.ConfigPath, string(cfgData)); err != nil {
		finishErr = err
		return finishErr
	}
	st, err := store.Open(ws.StoreDBPath)
	if err != nil {
		finishErr = err
		return finishErr
	}
	_ = st.Close()

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s --workspace %s auth signup --email you@example.com --password ...\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s --workspace %s report demo --month Jan --save\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s --workspace %s story build --preset Q1\n", appName, ws.Root)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func runAudit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", 20, "Number of events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(workspacePath)
	if err != nil {
		return err
	}
	events, err := audit.NewLogger(ws.AuditDBPath).Recent(*limit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintf(os.Stdout, "%s  %-4s %-28s %s\n", ev.TS.Format(time.RFC3339), ev.Actor, ev.Type, ev.Payload)
	}
	return nil
}
