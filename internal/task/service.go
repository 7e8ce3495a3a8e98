package task

import (
	"context"
	"strings"
	"time"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/tasklist"
)

// soonWindow bounds the "due soon" filter relative to now.
const soonWindow = 24 * time.Hour

// store is the subset of Store the service depends on.
type store interface {
	GetByID(ctx context.Context, id string) (*Task, error)
	Create(ctx context.Context, in CreateTaskInput, completedAt *time.Time) (*Task, error)
	Update(ctx context.Context, id string, in UpdateTaskInput) (*Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]Task, error)
}

// lists resolves and authorizes the parent list. *tasklist.Service
// satisfies it.
type lists interface {
	GetAuthorized(ctx context.Context, listID, userID string) (*tasklist.List, error)
}

// Service enforces task field invariants, most importantly the coupling
// between status and the completion timestamp. Access always derives from
// the parent list's current ownership.
type Service struct {
	store store
	lists lists
	now   func() time.Time
}

// NewService creates a task service.
func NewService(st *Store, lists *tasklist.Service) *Service {
	return &Service{store: st, lists: lists, now: time.Now}
}

// Create makes a new task in a list the caller can access. The completion
// timestamp is stamped exactly when the requested status is DONE. Archived
// lists refuse new tasks.
func (s *Service) Create(ctx context.Context, userID string, in CreateTaskInput) (*Task, error) {
	in.Title = strings.TrimSpace(in.Title)

	details := map[string]string{}
	if in.ListID == "" {
		details["listId"] = "listId is required"
	}
	if len(in.Title) < 2 {
		details["title"] = "Title must be at least 2 characters"
	}
	if !in.Priority.Valid() {
		details["priority"] = "Priority must be LOW, MEDIUM, or HIGH"
	}
	if !in.Status.Valid() {
		details["status"] = "Status must be TODO, IN_PROGRESS, or DONE"
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details)
	}

	list, err := s.lists.GetAuthorized(ctx, in.ListID, userID)
	if err != nil {
		return nil, err
	}
	if list.Archived {
		return nil, apperr.Conflict(apperr.CodeListArchived, "Task list is archived")
	}

	var completedAt *time.Time
	if in.Status == StatusDone {
		now := s.now()
		completedAt = &now
	}

	return s.store.Create(ctx, in, completedAt)
}

// Update applies a partial update. The completion timestamp follows the
// status transition against the task's current stored status: entering DONE
// stamps now, leaving DONE clears it, and a patch without status leaves it
// untouched. An empty patch is rejected.
func (s *Service) Update(ctx context.Context, taskID, userID string, in UpdateTaskInput) (*Task, error) {
	current, _, err := s.getAuthorized(ctx, taskID, userID, true)
	if err != nil {
		return nil, err
	}

	if in.Empty() {
		return nil, apperr.Validation(map[string]string{"body": "No valid fields to update"})
	}

	details := map[string]string{}
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		if len(trimmed) < 2 {
			details["title"] = "Title must be at least 2 characters"
		}
		in.Title = &trimmed
	}
	if in.Priority != nil && !in.Priority.Valid() {
		details["priority"] = "Priority must be LOW, MEDIUM, or HIGH"
	}
	if in.Status != nil && !in.Status.Valid() {
		details["status"] = "Status must be TODO, IN_PROGRESS, or DONE"
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details)
	}

	in.CompletedAt = nil
	in.HasCompletedAt = false
	if in.Status != nil {
		switch {
		case *in.Status == StatusDone && current.Status != StatusDone:
			now := s.now()
			in.CompletedAt = &now
			in.HasCompletedAt = true
		case *in.Status != StatusDone && current.Status == StatusDone:
			in.HasCompletedAt = true
		}
	}

	updated, err := s.store.Update(ctx, taskID, in)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Task not found")
	}
	return updated, nil
}

// Get returns a task the caller can read through its parent list.
func (s *Service) Get(ctx context.Context, taskID, userID string) (*Task, error) {
	t, _, err := s.getAuthorized(ctx, taskID, userID, false)
	return t, err
}

// Delete removes a task. No cascade: a task has no children.
func (s *Service) Delete(ctx context.Context, taskID, userID string) error {
	if _, _, err := s.getAuthorized(ctx, taskID, userID, true); err != nil {
		return err
	}
	return s.store.Delete(ctx, taskID)
}

// List returns the tasks in a list matching the filters, newest first. The
// list is authorized before any task is touched; archived lists remain
// readable.
func (s *Service) List(ctx context.Context, userID, listID string, f Filters) ([]Task, error) {
	if listID == "" {
		return nil, apperr.Validation(map[string]string{"listId": "listId is required"})
	}
	if _, err := s.lists.GetAuthorized(ctx, listID, userID); err != nil {
		return nil, err
	}

	q := Query{ListID: listID, Status: f.Status, Priority: f.Priority, Q: f.Q}
	switch f.Due {
	case DueSoon:
		now := s.now()
		soon := now.Add(soonWindow)
		q.NotDone = true
		q.DueFrom = &now
		q.DueTo = &soon
	case DueOverdue:
		now := s.now()
		q.NotDone = true
		q.DueBefore = &now
	}

	return s.store.List(ctx, q)
}

// getAuthorized resolves the task and authorizes the caller through its
// parent list. With mutating set, an archived parent list blocks the
// operation.
func (s *Service) getAuthorized(ctx context.Context, taskID, userID string, mutating bool) (*Task, *tasklist.List, error) {
	t, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, apperr.NotFound("Task not found")
	}

	list, err := s.lists.GetAuthorized(ctx, t.ListID, userID)
	if err != nil {
		return nil, nil, err
	}
	if mutating && list.Archived {
		return nil, nil, apperr.Conflict(apperr.CodeListArchived, "Task list is archived")
	}
	return t, list, nil
}
