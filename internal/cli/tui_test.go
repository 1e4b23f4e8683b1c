package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/wcm/pkg/install"
)

func TestProgressModelUpdate(t *testing.T) {
	m := NewProgressModel("Installing")

	next, cmd := m.Update(eventMsg(install.Event{Progress: install.Progress{Completed: 1, Pending: 2, Label: "a@1.0.0"}}))
	m = next.(ProgressModel)
	if cmd != nil || m.Done {
		t.Fatal("progress event should not quit")
	}
	if m.Progress.Label != "a@1.0.0" {
		t.Errorf("label = %q", m.Progress.Label)
	}

	next, _ = m.Update(eventMsg(install.Event{Err: errors.New("boom"), Progress: m.Progress}))
	m = next.(ProgressModel)
	if len(m.Errors) != 1 || m.Errors[0] != "boom" {
		t.Errorf("errors = %v", m.Errors)
	}

	next, cmd = m.Update(eventMsg(install.Event{Done: true, Progress: install.Progress{Completed: 2, Pending: 2, Label: install.LabelFinished}}))
	m = next.(ProgressModel)
	if !m.Done || cmd == nil {
		t.Error("done event should quit")
	}

	view := m.View()
	for _, want := range []string{"Installing", "(2/2)", "Finished", "boom"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelCancel(t *testing.T) {
	next, cmd := NewProgressModel("x").Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if m := next.(ProgressModel); !m.Cancelled || cmd == nil {
		t.Error("ctrl+c should cancel and quit")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		p    install.Progress
		full int
	}{
		{install.Progress{}, 0},
		{install.Progress{Completed: 1, Pending: 2}, barWidth / 2},
		{install.Progress{Completed: 3, Pending: 3}, barWidth},
	}
	for _, tt := range tests {
		bar := renderBar(tt.p)
		if got := strings.Count(bar, "█"); got != tt.full {
			t.Errorf("renderBar(%+v) full = %d, want %d", tt.p, got, tt.full)
		}
	}
}

func TestStreamResultErr(t *testing.T) {
	if (streamResult{}).Err() != nil {
		t.Error("empty result should be nil")
	}
	first := errors.New("first")
	err := streamResult{Errors: []error{first, errors.New("second")}}.Err()
	if !errors.Is(err, first) || !strings.Contains(err.Error(), "2 error(s)") {
		t.Errorf("Err() = %v", err)
	}
}
