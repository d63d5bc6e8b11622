package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/dashboard"
	"github.com/adeleeuw3/NLVreport/internal/entry"
	"github.com/adeleeuw3/NLVreport/internal/notify"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
)

// setFlags collects repeated --set kpi.input=value flags.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// apply writes each assignment into data. With kpi set, keys name only the
// input.
func (s setFlags) apply(data record.Data, kpi string) error {
	for _, raw := range s {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q (want kpi.input=value)", raw)
		}
		kpiID, inputID := kpi, key
		if kpi == "" {
			kpiID, inputID, ok = strings.Cut(key, ".")
			if !ok {
				return fmt.Errorf("invalid --set %q (want kpi.input=value)", raw)
			}
		}
		data.Set(strings.TrimSpace(kpiID), strings.TrimSpace(inputID), value)
	}
	return nil
}

// readDataFile loads a YAML file of kpi -> input -> value.
func readDataFile(path string) (record.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var data record.Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	if data == nil {
		data = record.Data{}
	}
	return data, nil
}

// checkKPIs rejects ids and inputs the catalog does not define.
func checkKPIs(cat *catalog.Catalog, data record.Data) error {
	for _, kpiID := range data.KPIIDs() {
		def, ok := cat.Lookup(kpiID)
		if !ok {
			return fmt.Errorf("unknown KPI %q", kpiID)
		}
		for inputID := range data[kpiID] {
			if _, ok := def.Input(inputID); !ok {
				return fmt.Errorf("KPI %s has no input %q", kpiID, inputID)
			}
		}
	}
	return nil
}

type monthFlags struct {
	month  *string
	months *string
	year   *int
}

func addMonthFlags(fs *flag.FlagSet, multi bool) monthFlags {
	mf := monthFlags{
		month: fs.String("month", "", "Month (Jan..Dec)"),
		year:  fs.Int("year", 0, "Year (default: config default_year or current year)"),
	}
	if multi {
		mf.months = fs.String("months", "", "Comma-separated months (e.g. Jan,Feb,Mar)")
	}
	return mf
}

// resolve returns the selected months, normalized and in calendar order.
func (mf monthFlags) resolve() ([]string, error) {
	var raw []string
	if mf.months != nil && *mf.months != "" {
		if *mf.month != "" {
			return nil, fmt.Errorf("use --month or --months, not both")
		}
		raw = strings.Split(*mf.months, ",")
	} else if *mf.month != "" {
		raw = []string{*mf.month}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("--month is required")
	}
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		n, err := period.Normalize(m)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return period.Sort(out), nil
}

func runReport(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s report: missing subcommand", appName)
	}
	switch args[0] {
	case "save":
		return runReportSave(args[1:], workspacePath)
	case "show":
		return runReportShow(args[1:], workspacePath)
	case "delete":
		return runReportDelete(args[1:], workspacePath)
	case "copy-prev":
		return runReportCopyPrev(args[1:], workspacePath)
	case "demo":
		return runReportDemo(args[1:], workspacePath)
	case "diff":
		return runReportDiff(args[1:], workspacePath)
	case "months":
		return runReportMonths(args[1:], workspacePath)
	case "merged":
		return runReportMerged(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s report: unknown subcommand %q", appName, args[0])
	}
}

func runReportSave(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, true)
	file := fs.String("file", "", "YAML file of kpi -> input -> value")
	title := fs.String("title", "", "Report title")
	var sets setFlags
	fs.Var(&sets, "set", "Set one value as kpi.input=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
		return err
	}

	data := record.Data{}
	if *file != "" {
		if data, err = readDataFile(*file); err != nil {
			return err
		}
	}
	if err := sets.apply(data, ""); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("nothing to save (use --set or --file)")
	}

	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := checkKPIs(e.cat, data); err != nil {
		return err
	}
	year := e.year(*mf.year)
	ctx := context.Background()

	return e.track("report_save", map[string]any{"year": year, "months": months}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		ids, err := entry.NewService(e.store, e.cat).SaveMany(ctx, u.ID, year, months, data, *title)
		if err != nil {
			return err
		}
		e.notifier.Successf("%s", notify.FormatSavedMany(months, year))
		for _, id := range ids {
			fmt.Fprintln(os.Stdout, id)
		}
		return nil
	})
}

func runReportShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, false)
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
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
	year := e.year(*mf.year)
	form, err := entry.NewService(e.store, e.cat).Load(ctx, u.ID, months[0], year)
	if err != nil {
		return err
	}
	if !form.Found {
		e.notifier.Infof("No data saved for %s %d", form.Month, year)
	}
	return writeData(os.Stdout, e.cat, form.Data, *format)
}

func runReportDelete(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
		return err
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	year := e.year(*mf.year)
	ctx := context.Background()

	return e.track("report_delete", map[string]any{"year": year, "months": months}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		if err := entry.NewService(e.store, e.cat).DeleteMany(ctx, u.ID, year, months); err != nil {
			return err
		}
		e.notifier.Successf("%s", notify.FormatDeleted(months, year))
		return nil
	})
}

func runReportCopyPrev(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report copy-prev", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, false)
	save := fs.Bool("save", false, "Save the copied values into the month")
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
		return err
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	year := e.year(*mf.year)
	month := months[0]
	ctx := context.Background()

	return e.track("report_copy_prev", map[string]any{"year": year, "month": month}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		svc := entry.NewService(e.store, e.cat)
		data, ok, err := svc.CopyPrevious(ctx, u.ID, month, year)
		if err != nil {
			return err
		}
		if !ok {
			e.notifier.Warnf("No previous month data to copy")
			return nil
		}
		prev, _ := period.Previous(month, year)
		e.notifier.Infof("%s", notify.FormatLoaded(prev.Month, prev.Year))
		if *save {
			if _, err := svc.Save(ctx, u.ID, &entry.Form{Month: month, Year: year, Data: data}); err != nil {
				return err
			}
			e.notifier.Successf("%s", notify.FormatSaved(month, year))
		}
		return writeData(os.Stdout, e.cat, data, *format)
	})
}

func runReportDemo(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report demo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, false)
	modeName := fs.String("mode", "month", "Demo mode: full (all twelve months) or month")
	seed := fs.Int64("seed", 0, "Random seed (default: time based)")
	save := fs.Bool("save", false, "Save the generated data")
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := entry.ParseDemoMode(*modeName)
	if err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
		return err
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	year := e.year(*mf.year)
	month := months[0]
	data := entry.Demo(e.cat, mode, month, rand.New(rand.NewSource(*seed)))
	if !*save {
		return writeData(os.Stdout, e.cat, data, *format)
	}

	targets := []string{month}
	if mode == entry.DemoFull {
		targets = period.Months
	}
	ctx := context.Background()
	return e.track("report_demo", map[string]any{"year": year, "months": targets, "mode": string(mode)}, func() error {
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		if _, err := entry.NewService(e.store, e.cat).SaveMany(ctx, u.ID, year, targets, data, ""); err != nil {
			return err
		}
		e.notifier.Successf("%s", notify.FormatSavedMany(targets, year))
		return nil
	})
}

func runReportDiff(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
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
	year := e.year(*mf.year)
	svc := entry.NewService(e.store, e.cat)
	cur, err := svc.Load(ctx, u.ID, months[0], year)
	if err != nil {
		return err
	}
	prevData, _, err := svc.CopyPrevious(ctx, u.ID, cur.Month, year)
	if err != nil {
		return err
	}
	prev, err := period.Previous(cur.Month, year)
	if err != nil {
		return err
	}
	text, err := dashboard.Diff(period.ReportID(prev.Month, prev.Year), prevData, period.ReportID(cur.Month, year), cur.Data)
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

func runReportMonths(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report months", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	year := fs.Int("year", 0, "Year (default: config default_year or current year)")
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
	months, err := e.store.GetSavedMonths(ctx, u.ID, e.year(*year))
	if err != nil {
		return err
	}
	for _, m := range months {
		fmt.Fprintln(os.Stdout, m)
	}
	return nil
}

func runReportMerged(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("report merged", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mf := addMonthFlags(fs, true)
	format := fs.String("format", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	months, err := mf.resolve()
	if err != nil {
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
	data, err := entry.NewService(e.store, e.cat).LoadMerged(ctx, u.ID, e.year(*mf.year), months)
	if err != nil {
		return err
	}
	return writeData(os.Stdout, e.cat, data, *format)
}

// writeData prints data in catalog order, skipping KPIs with no values.
func writeData(w io.Writer, cat *catalog.Catalog, data record.Data, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "text":
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
	for _, def := range cat.All() {
		fields := data[def.ID]
		var parts []string
		for _, in := range def.Inputs {
			if v := strings.TrimSpace(fields[in.ID]); v != "" && strings.Trim(v, ", ") != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", in.ID, v))
			}
		}
		if len(parts) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-24s %s\n", def.ID, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
