package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/adeleeuw3/NLVreport/internal/period"
)

// State names the screen being shown.
type State string

const (
	Library   State = "library"
	Entry     State = "entry"
	Wizard    State = "wizard"
	Dashboard State = "dashboard"
)

// Action names a transition.
type Action string

const (
	OpenMonth    Action = "open_month"
	StartWizard  Action = "start_wizard"
	Generate     Action = "generate"
	OpenSnapshot Action = "open_snapshot"
	Back         Action = "back"
)

// ErrInvalidTransition is returned for an action the current state does not accept.
var ErrInvalidTransition = errors.New("invalid view transition")

var transitions = map[State]map[Action]State{
	Library: {
		OpenMonth:    Entry,
		StartWizard:  Wizard,
		OpenSnapshot: Dashboard,
	},
	Entry: {
		Back: Library,
	},
	Wizard: {
		Generate: Dashboard,
		Back:     Library,
	},
	Dashboard: {
		OpenMonth: Entry,
		Back:      Library,
	},
}

// EntryPayload selects the month being edited.
type EntryPayload struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
}

// WizardPayload seeds the story wizard.
type WizardPayload struct {
	Year int `json:"year"`
}

// DashboardPayload says what the dashboard shows: either a freshly generated
// range or a saved snapshot.
type DashboardPayload struct {
	SnapshotID string `json:"snapshotId,omitempty"`
	Year       int    `json:"year,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	Title      string `json:"title,omitempty"`
	ShowMoM    bool   `json:"showMoM,omitempty"`
}

// View is a snapshot of the machine for callers.
type View struct {
	State     State             `json:"state"`
	Entry     *EntryPayload     `json:"entry,omitempty"`
	Wizard    *WizardPayload    `json:"wizard,omitempty"`
	Dashboard *DashboardPayload `json:"dashboard,omitempty"`
}

// Machine is the navigation state of one session. Only the payload of the
// current state is retained.
type Machine struct {
	mu      sync.Mutex
	current View
}

// New returns a machine in the library state.
func New() *Machine {
	return &Machine{current: View{State: Library}}
}

// Current returns the present view.
func (m *Machine) Current() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Apply performs action with its payload. The payload type must match the
// action: EntryPayload for OpenMonth, WizardPayload for StartWizard,
// DashboardPayload for Generate and OpenSnapshot, nil for Back.
func (m *Machine) Apply(action Action, payload any) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.current.State][action]
	if !ok {
		return m.current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, m.current.State)
	}
	v := View{State: next}
	switch action {
	case OpenMonth:
		p, ok := payload.(EntryPayload)
		if !ok {
			return m.current, fmt.Errorf("%s: expected EntryPayload, got %T", action, payload)
		}
		month, err := period.Normalize(p.Month)
		if err != nil {
			return m.current, err
		}
		p.Month = month
		v.Entry = &p
	case StartWizard:
		p, ok := payload.(WizardPayload)
		if !ok {
			return m.current, fmt.Errorf("%s: expected WizardPayload, got %T", action, payload)
		}
		v.Wizard = &p
	case Generate:
		p, ok := payload.(DashboardPayload)
		if !ok {
			return m.current, fmt.Errorf("%s: expected DashboardPayload, got %T", action, payload)
		}
		if _, err := period.Range(p.Start, p.End); err != nil {
			return m.current, err
		}
		p.SnapshotID = ""
		v.Dashboard = &p
	case OpenSnapshot:
		p, ok := payload.(DashboardPayload)
		if !ok || p.SnapshotID == "" {
			return m.current, fmt.Errorf("%s: snapshot id is required", action)
		}
		v.Dashboard = &p
	}
	m.current = v
	return v, nil
}

// Registry holds one machine per user.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*Machine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]*Machine)}
}

// For returns the user's machine, creating it in the library state.
func (r *Registry) For(userID string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[userID]
	if !ok {
		m = New()
		r.machines[userID] = m
	}
	return m
}

// Forget drops a user's machine, e.g. on sign-out.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, userID)
}
