package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adeleeuw3/NLVreport/internal/dashboard"
	"github.com/adeleeuw3/NLVreport/internal/notify"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/server"
	"github.com/adeleeuw3/NLVreport/internal/stitch"
)

func (e *env) builder() *dashboard.Builder {
	return dashboard.NewBuilder(e.cat, e.cfg.Overview.Headlines, e.cfg.Overview.Trends)
}

func writeDashboard(d *dashboard.Dashboard, format string) error {
	switch format {
	case "text":
		return dashboard.RenderText(os.Stdout, d)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return fmt.Errorf("unknown format %q (want text or json)", format)
}

func runStory(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] != "build" {
		return fmt.Errorf("%s story: expected subcommand build", appName)
	}
	fs := flag.NewFlagSet("story build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	year := fs.Int("year", 0, "Year (default: config default_year or current year)")
	preset := fs.String("preset", "", "Range preset: Q1..Q4, H1, H2 or Full")
	from := fs.String("from", "", "First month of the range")
	to := fs.String("to", "", "Last month of the range")
	title := fs.String("title", "", "Story title")
	showMoM := fs.Bool("show-mom", false, "Compare against the preceding period of equal length")
	save := fs.Bool("save", false, "Save the story as a dashboard")
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *preset != "" {
		start, end, ok := period.Preset(*preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", *preset)
		}
		*from, *to = start, end
	}
	if *from == "" || *to == "" {
		return fmt.Errorf("--preset or both --from and --to are required")
	}

	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	req := stitch.Request{Year: e.year(*year), Start: *from, End: *to, Title: *title, ShowMoM: *showMoM}

	return e.track("story_build", map[string]any{"year": req.Year, "start": req.Start, "end": req.End, "show_mom": req.ShowMoM}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		story, err := stitch.Build(ctx, e.cat, e.store, u.ID, req)
		if err != nil {
			return err
		}
		if len(story.Missing) > 0 {
			e.notifier.Warnf("%s", notify.FormatMissingMonths(story.Missing))
		}
		if *showMoM && story.Previous == nil {
			e.notifier.Infof("No data for the comparison period")
		}
		if *save {
			id, err := e.store.SaveDashboard(ctx, u.ID, "", story.Title, story.Current)
			if err != nil {
				return err
			}
			e.notifier.Successf("Saved dashboard %q (%s)", story.Title, id)
		}
		return writeDashboard(e.builder().Build(story.Title, story.Current, story.Previous), *format)
	})
}

func runDashboard(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s dashboard: missing subcommand", appName)
	}
	switch args[0] {
	case "list":
		return runDashboardList(args[1:], workspacePath)
	case "show":
		return runDashboardShow(args[1:], workspacePath)
	case "delete":
		return runDashboardDelete(args[1:], workspacePath)
	case "export":
		return runDashboardExport(args[1:], workspacePath)
	case "import":
		return runDashboardImport(args[1:], workspacePath)
	case "diff":
		return runDashboardDiff(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s dashboard: unknown subcommand %q", appName, args[0])
	}
}

func runDashboardList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	u, err := e.currentUser(ctx)
	if err != nil {
		return err
	}
	list, err := e.store.GetDashboards(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, d := range list {
		label := ""
		if d.FormData.Meta != nil {
			label = d.FormData.Meta.RangeLabel
		}
		fmt.Fprintf(os.Stdout, "%s  %s  %-32s %s\n", d.ID, d.UpdatedAt.Format(time.RFC3339), d.Title, label)
	}
	return nil
}

// loadRendered loads a snapshot and, when it asks for a comparison, the
// preceding period.
func (e *env) loadRendered(ctx context.Context, userID, id string) (*record.Dashboard, *dashboard.Dashboard, error) {
	d, err := e.store.GetDashboard(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	var prev *record.Merged
	if meta := d.FormData.Meta; meta != nil && meta.ShowMoM {
		prev, err = stitch.Previous(ctx, e.cat, e.store, userID, meta)
		if err != nil {
			return nil, nil, err
		}
	}
	return d, e.builder().Build(d.Title, d.FormData, prev), nil
}

func runDashboardShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "Dashboard id")
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	u, err := e.currentUser(ctx)
	if err != nil {
		return err
	}
	_, rendered, err := e.loadRendered(ctx, u.ID, *id)
	if err != nil {
		return err
	}
	return writeDashboard(rendered, *format)
}

func runDashboardDelete(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "Dashboard id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	return e.track("dashboard_delete", map[string]any{"dashboard_id": *id}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		if err := e.store.DeleteDashboard(ctx, u.ID, *id); err != nil {
			return err
		}
		e.notifier.Successf("Deleted dashboard %s", *id)
		return nil
	})
}

func runDashboardExport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "Dashboard id")
	out := fs.String("out", "", "Output path (default: <workspace>/exports/<id>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	path := e.ws.ExportPath(*id)
	if *out != "" {
		if path, err = e.ws.ResolvePath(*out); err != nil {
			return fmt.Errorf("resolve --out: %w", err)
		}
	}
	ctx := context.Background()
	return e.track("dashboard_export", map[string]any{"dashboard_id": *id, "path": path}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		d, rendered, err := e.loadRendered(ctx, u.ID, *id)
		if err != nil {
			return err
		}
		err = dashboard.WriteExport(path, dashboard.Export{
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Dashboard:  rendered,
			FormData:   d.FormData,
		})
		if err != nil {
			return err
		}
		e.notifier.Successf("Exported %s", path)
		return nil
	})
}

func runDashboardImport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "Export file (relative paths resolve from <workspace>/imports)")
	title := fs.String("title", "", "Title for the imported dashboard (default: exported title)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	path := *file
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.ws.ImportsDir, path)
	}
	ctx := context.Background()
	return e.track("dashboard_import", map[string]any{"path": path}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		exp, err := dashboard.LoadExport(path)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(*title)
		if name == "" {
			name = exp.Dashboard.Title
		}
		id, err := e.store.SaveDashboard(ctx, u.ID, "", name, exp.FormData)
		if err != nil {
			return err
		}
		e.notifier.Successf("Imported dashboard %q (%s)", name, id)
		fmt.Fprintln(os.Stdout, id)
		return nil
	})
}

func runDashboardDiff(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("dashboard diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	from := fs.String("from", "", "Base dashboard id")
	to := fs.String("to", "", "Compared dashboard id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		return fmt.Errorf("--from and --to are required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()
	u, err := e.currentUser(ctx)
	if err != nil {
		return err
	}
	a, err := e.store.GetDashboard(ctx, u.ID, *from)
	if err != nil {
		return err
	}
	b, err := e.store.GetDashboard(ctx, u.ID, *to)
	if err != nil {
		return err
	}
	text, err := dashboard.Diff(a.Title, a.FormData.Data, b.Title, b.FormData.Data)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(os.Stdout, "No differences.")
		return nil
	}
	fmt.Fprint(os.Stdout, text)
	return nil
}

func runPreview(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	kpi := fs.String("kpi", "", "KPI id")
	format := fs.String("format", "text", "Output format: text or json")
	var sets setFlags
	fs.Var(&sets, "set", "Set one input as input=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kpi == "" {
		return fmt.Errorf("--kpi is required")
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()

	data := record.Data{*kpi: record.Fields{}}
	if err := sets.apply(data, *kpi); err != nil {
		return err
	}
	if err := checkKPIs(e.cat, data); err != nil {
		return err
	}
	card, _ := e.builder().Card(*kpi, record.Merged{Data: data}, nil)
	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(card)
	}
	return writeDashboard(&dashboard.Dashboard{
		Title:    card.Title,
		Sections: []dashboard.Section{{Category: card.Category, Color: card.Color, Cards: []dashboard.Card{card}}},
	}, *format)
}

func runServe(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "Listen address (default: config server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	listen := e.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return e.track("serve", map[string]any{"addr": listen}, func() error {
		srv := server.New(e.store, e.cat, e.builder(), e.logger)
		fmt.Fprintf(os.Stdout, "Serving %s API on http://%s\n", appName, listen)
		return srv.ListenAndServe(ctx, listen)
	})
}
