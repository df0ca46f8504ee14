package tui

import (
	"context"
	"strings"
	"testing"

	"tache-cli/internal/api"
	"tache-cli/internal/model"
	"tache-cli/internal/report"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeChecker struct {
	jobID    string
	statuses []api.JobStatus
	n        int
}

func (f *fakeChecker) StartReport(context.Context, string) (string, error) {
	return f.jobID, nil
}

func (f *fakeChecker) CheckReport(context.Context, string, string) (api.JobStatus, error) {
	st := f.statuses[f.n]
	if f.n < len(f.statuses)-1 {
		f.n++
	}
	return st, nil
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg(tea.Key{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestNewAppModel_ViewDependsOnToken(t *testing.T) {
	t.Parallel()

	m := newAppModel(Config{BaseURL: "http://example.test/api"})
	if m.view != viewLogin {
		t.Fatalf("view = %v; want login when no token", m.view)
	}

	m = newAppModel(Config{BaseURL: "http://example.test/api", Token: "tok"})
	if m.view != viewTasks {
		t.Fatalf("view = %v; want tasks when token present", m.view)
	}
	if !m.holder.Authenticated() {
		t.Fatal("holder should carry the persisted token")
	}
}

func TestTaskItem_Title(t *testing.T) {
	t.Parallel()

	open := taskItem{task: model.Task{Title: "Acheter du pain", Description: "boulangerie"}}
	if got := open.Title(); !strings.HasPrefix(got, "[ ] ") || !strings.Contains(got, "boulangerie") {
		t.Fatalf("open item title = %q", got)
	}

	done := taskItem{task: model.Task{Title: "Relire", Done: true}}
	if got := done.Title(); !strings.HasPrefix(got, "[x] ") {
		t.Fatalf("done item title = %q", got)
	}
}

func TestUpdate_PollChainsUntilTerminal(t *testing.T) {
	t.Parallel()

	m := newAppModel(Config{BaseURL: "http://example.test/api", Token: "tok"})
	_, epoch := m.holder.Snapshot()

	next, cmd := m.Update(pollResultMsg{epoch: epoch, status: report.Status{State: model.JobRunning, Text: "Génération en cours... (STARTED)"}})
	if cmd == nil {
		t.Fatal("non-terminal poll result should schedule the next tick")
	}
	m = next.(appModel)

	_, cmd = m.Update(pollResultMsg{epoch: epoch, status: report.Status{State: model.JobSucceeded, Text: "report-42", Result: "report-42"}})
	if cmd != nil {
		t.Fatal("terminal poll result should stop the tick chain")
	}
}

func TestUpdate_LateResponseAfterLogoutIsDropped(t *testing.T) {
	t.Parallel()

	m := newAppModel(Config{BaseURL: "http://example.test/api", Token: "tok"})

	// A report job is running under the current session.
	f := &fakeChecker{jobID: "job-1", statuses: []api.JobStatus{{State: api.StateStarted}}}
	if _, err := m.machine.Submit(context.Background(), f, "tok"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, staleEpoch := m.holder.Snapshot()

	// Logout while the job is non-terminal.
	next, _ := m.Update(keyMsg("L"))
	m = next.(appModel)
	if m.view != viewLogin {
		t.Fatalf("view after logout = %v; want login", m.view)
	}
	if m.machine.Status().State != model.JobNone {
		t.Fatal("logout must abandon the tracked job")
	}

	// A poll response issued before logout arrives late: no visible change,
	// no new tick scheduled.
	next, cmd := m.Update(pollResultMsg{epoch: staleEpoch, status: report.Status{State: model.JobRunning, Text: "Génération en cours... (STARTED)"}})
	m = next.(appModel)
	if cmd != nil {
		t.Fatal("stale poll response must not reschedule polling")
	}
	if m.view != viewLogin || m.machine.Status().State != model.JobNone {
		t.Fatal("stale poll response mutated visible state after logout")
	}

	// Same for a late task mutation response.
	next, cmd = m.Update(taskMutatedMsg{epoch: staleEpoch, err: nil})
	m = next.(appModel)
	if cmd != nil || len(m.taskList.Items()) != 0 {
		t.Fatal("stale task response applied after logout")
	}
}

func TestUpdate_ErrorSlotSupersededBySuccess(t *testing.T) {
	t.Parallel()

	m := newAppModel(Config{BaseURL: "http://example.test/api", Token: "tok"})
	_, epoch := m.holder.Snapshot()

	next, _ := m.Update(taskMutatedMsg{epoch: epoch, err: &api.Error{Op: api.OpUpdate, Status: 500, Message: "boom"}})
	m = next.(appModel)
	if !strings.Contains(m.errText, "boom") {
		t.Fatalf("errText = %q", m.errText)
	}

	next, _ = m.Update(taskMutatedMsg{epoch: epoch, err: nil})
	m = next.(appModel)
	if m.errText != "" {
		t.Fatalf("error slot not cleared by later success: %q", m.errText)
	}
}

func TestReportLine_States(t *testing.T) {
	t.Parallel()

	m := newAppModel(Config{BaseURL: "http://example.test/api", Token: "tok"})

	if line := m.reportLine(); line != "" {
		t.Fatalf("no job, no loading: line = %q", line)
	}

	f := &fakeChecker{jobID: "job-1", statuses: []api.JobStatus{
		{State: api.StatePending},
	}}
	if _, err := m.machine.Submit(context.Background(), f, "tok"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if line := m.reportLine(); !strings.Contains(line, "job-1") {
		t.Fatalf("submitted line = %q", line)
	}

	if _, err := m.machine.Poll(context.Background(), f, "tok"); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if line := m.reportLine(); !strings.Contains(line, "attente") {
		t.Fatalf("pending line = %q", line)
	}
}
