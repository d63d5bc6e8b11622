package view

import (
	"errors"
	"testing"

	"github.com/adeleeuw3/NLVreport/internal/period"
)

func TestWizardToDashboardAndBack(t *testing.T) {
	m := New()
	if m.Current().State != Library {
		t.Fatalf("initial state = %s", m.Current().State)
	}
	if _, err := m.Apply(StartWizard, WizardPayload{Year: 2025}); err != nil {
		t.Fatalf("StartWizard: %v", err)
	}
	v, err := m.Apply(Generate, DashboardPayload{Year: 2025, Start: "Jan", End: "Mar"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if v.State != Dashboard || v.Dashboard == nil || v.Dashboard.End != "Mar" || v.Wizard != nil {
		t.Fatalf("view = %+v", v)
	}
	v, err = m.Apply(Back, nil)
	if err != nil || v.State != Library || v.Dashboard != nil {
		t.Fatalf("Back = %+v, %v", v, err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	m := New()
	if _, err := m.Apply(Back, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Back from library err = %v", err)
	}
	if _, err := m.Apply(Generate, DashboardPayload{Start: "Jan", End: "Feb"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Generate from library err = %v", err)
	}
	if _, err := m.Apply(OpenMonth, WizardPayload{}); err == nil {
		t.Fatalf("expected payload type error")
	}
	if m.Current().State != Library {
		t.Fatalf("failed transition changed state to %s", m.Current().State)
	}

	if _, err := m.Apply(StartWizard, WizardPayload{Year: 2025}); err != nil {
		t.Fatalf("StartWizard: %v", err)
	}
	if _, err := m.Apply(Generate, DashboardPayload{Start: "Jun", End: "Jan"}); !errors.Is(err, period.ErrRange) {
		t.Fatalf("reversed range err = %v", err)
	}
	if m.Current().State != Wizard {
		t.Fatalf("state = %s, want wizard", m.Current().State)
	}
}

func TestOpenMonthNormalizes(t *testing.T) {
	m := New()
	v, err := m.Apply(OpenMonth, EntryPayload{Month: "feb", Year: 2025})
	if err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}
	if v.Entry.Month != "Feb" {
		t.Fatalf("month = %s", v.Entry.Month)
	}
	if _, err := m.Apply(OpenSnapshot, DashboardPayload{SnapshotID: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("OpenSnapshot from entry err = %v", err)
	}
}

func TestRegistryPerUser(t *testing.T) {
	r := NewRegistry()
	if _, err := r.For("a").Apply(OpenSnapshot, DashboardPayload{SnapshotID: "s1"}); err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	if r.For("b").Current().State != Library {
		t.Fatalf("user b shares state with a")
	}
	if r.For("a").Current().State != Dashboard {
		t.Fatalf("user a lost state")
	}
	r.Forget("a")
	if r.For("a").Current().State != Library {
		t.Fatalf("Forget did not reset")
	}
}
