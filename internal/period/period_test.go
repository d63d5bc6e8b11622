package period

import (
	"errors"
	"reflect"
	"testing"
)

func TestPreviousWrapsYear(t *testing.T) {
	got, err := Previous("Jan", 2025)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if want := (MonthYear{Month: "Dec", Year: 2024}); got != want {
		t.Fatalf("Previous(Jan, 2025) = %v, want %v", got, want)
	}
	got, err = Previous("jul", 2025)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if want := (MonthYear{Month: "Jun", Year: 2025}); got != want {
		t.Fatalf("Previous(jul, 2025) = %v, want %v", got, want)
	}
	if _, err := Previous("Smarch", 2025); err == nil {
		t.Fatalf("expected error for unknown month")
	}
}

func TestRange(t *testing.T) {
	got, err := Range("Apr", "Jun")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if want := []string{"Apr", "May", "Jun"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Range = %v, want %v", got, want)
	}
	if _, err := Range("Jun", "Apr"); !errors.Is(err, ErrRange) {
		t.Fatalf("Range(Jun, Apr) err = %v, want ErrRange", err)
	}
}

func TestPresets(t *testing.T) {
	cases := map[string][2]string{
		"Q1":   {"Jan", "Mar"},
		"q4":   {"Oct", "Dec"},
		"H2":   {"Jul", "Dec"},
		"Full": {"Jan", "Dec"},
	}
	for name, want := range cases {
		start, end, ok := Preset(name)
		if !ok || start != want[0] || end != want[1] {
			t.Fatalf("Preset(%s) = %s..%s %v, want %s..%s", name, start, end, ok, want[0], want[1])
		}
	}
	if _, _, ok := Preset("Q5"); ok {
		t.Fatalf("Preset(Q5) should not resolve")
	}
}

func TestPrecedingCrossesYear(t *testing.T) {
	got, err := Preceding([]string{"Feb", "Mar"}, 2025)
	if err != nil {
		t.Fatalf("Preceding: %v", err)
	}
	want := []MonthYear{{"Dec", 2024}, {"Jan", 2025}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Preceding = %v, want %v", got, want)
	}
}

func TestMissingAndLabel(t *testing.T) {
	missing := Missing([]string{"Jan", "Mar"}, []string{"Jan", "Feb", "Mar", "Apr"})
	if want := []string{"Feb", "Apr"}; !reflect.DeepEqual(missing, want) {
		t.Fatalf("Missing = %v, want %v", missing, want)
	}
	if got, want := Label([]string{"Jan", "Feb", "Mar"}, 2025), "Jan - Mar 2025"; got != want {
		t.Fatalf("Label = %q, want %q", got, want)
	}
	if got, want := Label([]string{"May"}, 2025), "May 2025"; got != want {
		t.Fatalf("Label = %q, want %q", got, want)
	}
	if got, want := Sort([]string{"Mar", "Jan", "bogus", "Jan"}), []string{"Jan", "Mar"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}
}
