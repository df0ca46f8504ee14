package model

// Task is a user-owned to-do item as known locally. The collection holding
// these is a mirror of the remote store: the id is server-assigned and never
// invented client-side.
type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Done        bool   `json:"done"`
}

// TaskPatch is a partial update. Nil fields are not sent to the server and,
// when a patch comes back from the server, nil fields are not merged into the
// local entry.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Done        *bool   `json:"done,omitempty"`
}

// Empty reports whether the patch carries no fields at all.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil
}

// ApplyTo merges the patch's present fields into t, leaving absent fields
// untouched.
func (p TaskPatch) ApplyTo(t *Task) {
	if t == nil {
		return
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
}

// JobState is the lifecycle state of a report-generation job as tracked by
// the client. SUBMITTED means the server accepted the job but no status check
// has completed yet.
type JobState int

const (
	JobNone JobState = iota
	JobSubmitted
	JobPending
	JobRunning
	JobSucceeded
	JobFailed
)

// Terminal reports whether no further polling may change the state.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

func (s JobState) String() string {
	switch s {
	case JobNone:
		return "none"
	case JobSubmitted:
		return "submitted"
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	}
	return "unknown"
}

// StrPtr and BoolPtr build patch fields inline.
func StrPtr(s string) *string { return &s }
func BoolPtr(b bool) *bool    { return &b }
