// Package task owns task records and the coupling between status and the
// completion timestamp. All access control is derived from the parent list
// at request time, never cached on the task.
package task

import "time"

// Status is a task's workflow state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether st is a known status.
func (st Status) Valid() bool {
	return st == StatusTodo || st == StatusInProgress || st == StatusDone
}

// Priority is a task's urgency level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// DueFilter classifies tasks by due date relative to now. DONE tasks are
// excluded from soon and overdue regardless of their due date.
type DueFilter string

const (
	DueAll     DueFilter = "all"
	DueSoon    DueFilter = "soon"
	DueOverdue DueFilter = "overdue"
)

// Valid reports whether d is a known due filter.
func (d DueFilter) Valid() bool {
	return d == DueAll || d == DueSoon || d == DueOverdue
}

// Task is a unit of work belonging to exactly one list. CompletedAt is
// non-nil exactly when Status is DONE.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	ListID      string     `json:"listId"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// CreateTaskInput holds the fields for creating a task.
type CreateTaskInput struct {
	ListID      string
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    Priority
	Status      Status
}

// UpdateTaskInput carries the PATCH fields for a task. A nil pointer with
// its Has flag set means the client sent an explicit null to clear the
// field; Has unset means the field was absent and stays untouched.
// CompletedAt is derived by the service from the status transition, never
// taken from the request.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	HasDescription bool
	DueDate        *time.Time
	HasDueDate     bool
	Priority       *Priority
	Status         *Status
	CompletedAt    *time.Time
	HasCompletedAt bool
}

// Empty reports whether the patch carries no recognized fields.
func (in UpdateTaskInput) Empty() bool {
	return in.Title == nil && !in.HasDescription && !in.HasDueDate &&
		in.Priority == nil && in.Status == nil
}

// Filters compose conjunctively when listing tasks within a list.
type Filters struct {
	Status   *Status
	Priority *Priority
	Q        string
	Due      DueFilter
}

// Query is the store-level shape of a task listing. The service translates
// the due filter into explicit time bounds here.
type Query struct {
	ListID    string
	Status    *Status
	Priority  *Priority
	Q         string
	NotDone   bool
	DueFrom   *time.Time
	DueTo     *time.Time
	DueBefore *time.Time
}
