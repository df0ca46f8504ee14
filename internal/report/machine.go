// Package report drives a single server-side report-generation job from
// submission to a terminal outcome.
//
// The machine tracks at most one job. Once SUCCEEDED or FAILED is reached the
// state is latched: further polls are no-ops and a stale in-flight response
// can never regress the status. A failed status check is escalated into the
// terminal FAILED state rather than surfaced as an error, so an unreachable
// job still ends up in a displayable terminal state and the poll timer always
// stops.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tache-cli/internal/api"
	"tache-cli/internal/model"
)

// DefaultInterval is the reference poll period.
const DefaultInterval = 3 * time.Second

// ErrJobActive is returned by Submit while a previous job is still
// non-terminal. Callers gate the action with Active().
var ErrJobActive = errors.New("a report job is already active")

// ErrNoJob is returned by Poll when nothing was submitted.
var ErrNoJob = errors.New("no report job submitted")

// Checker is the slice of the remote client the machine needs.
type Checker interface {
	StartReport(ctx context.Context, token string) (string, error)
	CheckReport(ctx context.Context, token, jobID string) (api.JobStatus, error)
}

// Status is a point-in-time view of the tracked job. Text is the
// human-readable status line the original client shows; Result is set only in
// terminal states (the report body on success, the failure message otherwise).
type Status struct {
	State  model.JobState
	JobID  string
	Text   string
	Result string
}

// Terminal reports whether polling has stopped for good.
func (s Status) Terminal() bool { return s.State.Terminal() }

// Machine is the job polling state machine. The zero value tracks no job.
type Machine struct {
	mu         sync.Mutex
	state      model.JobState
	jobID      string
	text       string
	result     string
	submitting bool
	polling    bool
}

// Submit creates a new report job. Allowed only when no job is tracked or the
// previous one is terminal; otherwise ErrJobActive without any network call.
// On remote failure the state stays untouched.
func (m *Machine) Submit(ctx context.Context, client Checker, token string) (string, error) {
	m.mu.Lock()
	if m.submitting || (m.state != model.JobNone && !m.state.Terminal()) {
		m.mu.Unlock()
		return "", ErrJobActive
	}
	m.submitting = true
	m.mu.Unlock()

	jobID, err := client.StartReport(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = false
	if err != nil {
		return "", err
	}
	m.state = model.JobSubmitted
	m.jobID = jobID
	m.result = ""
	m.text = fmt.Sprintf("Rapport en cours de génération (ID: %s)", jobID)
	return jobID, nil
}

// Poll performs one status check and applies the outcome. In a terminal state
// it returns the latched status without touching the network. A check that
// cannot reach the service (or answers non-2xx) drives the job to FAILED.
// Only one check is ever in flight: a Poll that overlaps another returns the
// current status untouched.
func (m *Machine) Poll(ctx context.Context, client Checker, token string) (Status, error) {
	m.mu.Lock()
	if m.state == model.JobNone {
		m.mu.Unlock()
		return Status{}, ErrNoJob
	}
	if m.state.Terminal() || m.polling {
		st := m.statusLocked()
		m.mu.Unlock()
		return st, nil
	}
	m.polling = true
	jobID := m.jobID
	m.mu.Unlock()

	js, err := client.CheckReport(ctx, token, jobID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.polling = false

	// A terminal transition applied while this check was in flight wins over
	// this (now stale) response.
	if m.state.Terminal() || m.jobID != jobID {
		return m.statusLocked(), nil
	}

	if err != nil {
		m.state = model.JobFailed
		m.result = err.Error()
		m.text = "Erreur lors de la vérification du statut"
		return m.statusLocked(), nil
	}

	switch js.State {
	case api.StatePending:
		m.state = model.JobPending
		m.text = fmt.Sprintf("Rapport en attente... (%s)", js.State)
	case api.StateStarted:
		m.state = model.JobRunning
		m.text = fmt.Sprintf("Génération en cours... (%s)", js.State)
	case api.StateSuccess:
		m.state = model.JobSucceeded
		m.result = derefOr(js.Result, "")
		m.text = m.result
	case api.StateFailure:
		m.state = model.JobFailed
		m.result = derefOr(js.Result, "échec du rapport")
		m.text = fmt.Sprintf("Erreur: %s", m.result)
	default:
		// Unrecognized status strings stay non-terminal and keep the timer
		// running; display them verbatim.
		m.text = fmt.Sprintf("Statut: %s", js.State)
	}
	return m.statusLocked(), nil
}

// Status returns the current projection without touching the network.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Machine) statusLocked() Status {
	return Status{State: m.state, JobID: m.jobID, Text: m.text, Result: m.result}
}

// Active reports whether a submit is in flight or a tracked job has not
// reached a terminal state yet.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting || (m.state != model.JobNone && !m.state.Terminal())
}

// Reset forgets a terminal job so a new one can be submitted cleanly. It is
// rejected while a job is active.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting || (m.state != model.JobNone && !m.state.Terminal()) {
		return ErrJobActive
	}
	m.state = model.JobNone
	m.jobID = ""
	m.text = ""
	m.result = ""
	return nil
}

// Watch polls at a fixed interval until the job reaches a terminal state or
// ctx is cancelled (logout cancels via its context). onUpdate is called after
// every applied outcome, from the watch goroutine's own loop; polls are
// strictly sequential so no two checks for the job are ever in flight.
func (m *Machine) Watch(ctx context.Context, client Checker, token string, interval time.Duration, onUpdate func(Status)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := m.Poll(ctx, client, token)
			if err != nil {
				return
			}
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.Terminal() {
				return
			}
		}
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
