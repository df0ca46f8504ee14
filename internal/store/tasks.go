// Package store keeps the local view of the remote task collection.
//
// The collection is authoritative-as-known: nothing is inserted or removed
// optimistically. Every mutation does one round trip and applies the server's
// answer; on failure the collection is byte-for-byte what it was before the
// call. The lock is held only while mutating the slice, never across a
// network call, so operations on distinct ids can overlap freely. Two
// un-awaited operations on the same id are applied in arrival order — a
// documented race inherited from the original client, not resolved here.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tache-cli/internal/model"
)

// API is the slice of the remote client the store needs. *api.Client
// satisfies it; tests substitute fakes.
type API interface {
	ListTasks(ctx context.Context, token string) ([]model.Task, error)
	CreateTask(ctx context.Context, token, title, description string) (model.Task, error)
	DeleteTask(ctx context.Context, token string, id int) error
	UpdateTask(ctx context.Context, token string, id int, patch model.TaskPatch) (model.TaskPatch, error)
}

// ValidationError is a local rejection; the remote service is never called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type unknownTaskError struct{ id int }

func (e unknownTaskError) Error() string {
	return fmt.Sprintf("task not found: %d", e.id)
}

// Tasks is the ordered in-memory task collection. The zero value is an empty
// collection ready for use.
type Tasks struct {
	mu    sync.Mutex
	tasks []model.Task
}

// Load replaces the whole collection with the server's list. On failure the
// previous collection is left untouched.
func (s *Tasks) Load(ctx context.Context, client API, token string) error {
	tasks, err := client.ListTasks(ctx, token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	return nil
}

// Create validates locally, then creates the task remotely and appends the
// server-returned entry (with its assigned id) to the end of the collection.
// There is no optimistic insert: the id is unknown until the server answers.
func (s *Tasks) Create(ctx context.Context, client API, token, title, description string) (model.Task, error) {
	if strings.TrimSpace(title) == "" {
		return model.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}

	created, err := client.CreateTask(ctx, token, title, description)
	if err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The server must not hand out an id we already hold, but if it does,
	// replace in place rather than growing a duplicate.
	for i := range s.tasks {
		if s.tasks[i].ID == created.ID {
			s.tasks[i] = created
			return created, nil
		}
	}
	s.tasks = append(s.tasks, created)
	return created, nil
}

// Delete removes the entry with the given id once the server confirms. The
// entry stays in the collection while the request is in flight so a failed
// delete leaves nothing orphaned. Removing an id that is already absent
// locally is a no-op.
func (s *Tasks) Delete(ctx context.Context, client API, token string, id int) error {
	if err := client.DeleteTask(ctx, token, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// Update sends a partial update and merges only the fields the server echoed
// back into the existing entry, in place (order preserved). Fields absent
// from the response keep their local values.
func (s *Tasks) Update(ctx context.Context, client API, token string, id int, patch model.TaskPatch) (model.Task, error) {
	echoed, err := client.UpdateTask(ctx, token, id, patch)
	if err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			echoed.ApplyTo(&s.tasks[i])
			return s.tasks[i], nil
		}
	}
	// The server updated an entry we no longer hold (e.g. replaced by a
	// Load in between). Nothing local to merge into.
	return model.Task{}, unknownTaskError{id: id}
}

// ToggleDone flips the done flag using the value currently observed in the
// collection, not a re-fetched one. Two back-to-back toggles issued without
// awaiting the first will both invert the same stale value; that race is
// kept as the original behaves.
func (s *Tasks) ToggleDone(ctx context.Context, client API, token string, id int) (model.Task, error) {
	s.mu.Lock()
	var current *model.Task
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			current = &s.tasks[i]
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return model.Task{}, unknownTaskError{id: id}
	}
	next := !current.Done
	s.mu.Unlock()

	return s.Update(ctx, client, token, id, model.TaskPatch{Done: &next})
}

// Snapshot returns a copy of the collection in order.
func (s *Tasks) Snapshot() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the entry with the given id, if present.
func (s *Tasks) Get(id int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Len returns the number of entries.
func (s *Tasks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// IsUnknownTask reports whether err means the id was not in the collection.
func IsUnknownTask(err error) bool {
	_, ok := err.(unknownTaskError)
	return ok
}
