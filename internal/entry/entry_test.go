package entry

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "entry.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return NewService(s, catalog.Default()), s
}

func TestLoadAdaptsLegacyYearRows(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	err := s.PutRawReport(ctx, record.Report{
		UserID: "u1",
		Month:  "Apr",
		Year:   2025,
		Data:   record.Data{"gen_csat": {"data": "1,2,3,4,5"}, "mkt_coffee": {"count": "12"}},
	})
	if err != nil {
		t.Fatalf("PutRawReport: %v", err)
	}

	form, err := svc.Load(ctx, "u1", "apr", 2025)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !form.Found || form.Month != "Apr" {
		t.Fatalf("form = %+v", form)
	}
	if v := form.Data["gen_csat"]["data"]; v != "4" {
		t.Fatalf("gen_csat.data = %q, want 4", v)
	}
	if v := form.Data["mkt_coffee"]["count"]; v != "12" {
		t.Fatalf("count = %q, want 12", v)
	}

	empty, err := svc.Load(ctx, "u1", "May", 2025)
	if err != nil || empty.Found || len(empty.Data) != 0 {
		t.Fatalf("empty form = %+v, %v", empty, err)
	}
}

func TestCopyPreviousAcrossYear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, err := svc.Save(ctx, "u1", &Form{Month: "Dec", Year: 2024, Data: record.Data{"gen_csat": {"data": "9"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, ok, err := svc.CopyPrevious(ctx, "u1", "Jan", 2025)
	if err != nil || !ok {
		t.Fatalf("CopyPrevious = %v, %v", ok, err)
	}
	if v := data["gen_csat"]["data"]; v != "9" {
		t.Fatalf("copied = %q, want 9", v)
	}
	if _, ok, err := svc.CopyPrevious(ctx, "u1", "Mar", 2025); ok || err != nil {
		t.Fatalf("CopyPrevious without data = %v, %v", ok, err)
	}
}

func TestSaveManyThenLoadMerged(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	year := record.Data{
		"gen_csat":   {"data": "1,2,3,4,5,6,7,8,9,10,11,12"},
		"mkt_coffee": {"count": "30"},
	}
	ids, err := svc.SaveMany(ctx, "u1", 2025, []string{"Mar", "Jan"}, year, "")
	if err != nil {
		t.Fatalf("SaveMany: %v", err)
	}
	if strings.Join(ids, ",") != "2025-Jan,2025-Mar" {
		t.Fatalf("ids = %v", ids)
	}

	mar, err := s.GetReport(ctx, "u1", "Mar", 2025)
	if err != nil || mar == nil {
		t.Fatalf("GetReport = %+v, %v", mar, err)
	}
	if v := mar.Data["gen_csat"]["data"]; v != "3" {
		t.Fatalf("Mar slot = %q, want 3", v)
	}

	merged, err := svc.LoadMerged(ctx, "u1", 2025, []string{"Jan", "Mar"})
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if v := merged["gen_csat"]["data"]; v != "1,,3,,,,,,,,," {
		t.Fatalf("merged = %q", v)
	}
	if v := merged["mkt_coffee"]["count"]; v != "30" {
		t.Fatalf("merged count = %q", v)
	}

	if err := svc.DeleteMany(ctx, "u1", 2025, []string{"Jan", "Mar"}); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	months, _ := s.GetSavedMonths(ctx, "u1", 2025)
	if len(months) != 0 {
		t.Fatalf("months after delete = %v", months)
	}
}

func TestDemoModes(t *testing.T) {
	cat := catalog.Default()
	rnd := rand.New(rand.NewSource(7))

	full := Demo(cat, DemoFull, "Mar", rnd)
	slots := strings.Split(full["gen_csat"]["data"], ",")
	if len(slots) != 12 {
		t.Fatalf("full slots = %d, want 12", len(slots))
	}
	for i, s := range slots {
		if strings.TrimSpace(s) == "" {
			t.Fatalf("full slot %d empty", i)
		}
	}

	month := Demo(cat, DemoMonth, "Mar", rnd)
	slots = strings.Split(month["gen_csat"]["data"], ",")
	for i, s := range slots {
		if (i == period.Index("Mar")) == (s == "") {
			t.Fatalf("month slot %d = %q", i, s)
		}
	}

	if v := month["ppl_billability"]["score"]; v < "60" || len(v) != 2 {
		t.Fatalf("percent input = %q, want 60..99", v)
	}
	if !strings.Contains(month["comm_top10"]["data"], ":") {
		t.Fatalf("leaderboard demo = %q", month["comm_top10"]["data"])
	}
	if _, err := ParseDemoMode("weekly"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
