package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new task store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, title, description, due_date, priority, status, list_id, created_at, completed_at`

func scanTask(scan func(dest ...any) error) (*Task, error) {
	t := &Task{}
	err := scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority,
		&t.Status, &t.ListID, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a task by id. Returns nil when no task exists.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

// Create inserts a new task.
func (s *Store) Create(ctx context.Context, in CreateTaskInput, completedAt *time.Time) (*Task, error) {
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO tasks (id, list_id, title, description, due_date, priority, status, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+taskColumns,
			uuid.NewString(), in.ListID, in.Title, in.Description, in.DueDate,
			in.Priority, in.Status, completedAt,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// Update applies the present fields and returns the updated row. The caller
// guarantees at least one field is set.
func (s *Store) Update(ctx context.Context, id string, in UpdateTaskInput) (*Task, error) {
	set := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.HasDescription {
		add("description", in.Description)
	}
	if in.HasDueDate {
		add("due_date", in.DueDate)
	}
	if in.Priority != nil {
		add("priority", *in.Priority)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.HasCompletedAt {
		add("completed_at", in.CompletedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), taskColumns,
	)

	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return t, nil
}

// Delete removes a task row.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// List returns the tasks matching the query, newest first. All predicates
// compose conjunctively.
func (s *Store) List(ctx context.Context, q Query) ([]Task, error) {
	where := []string{"list_id = $1"}
	args := []any{q.ListID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if q.Status != nil {
		add("status = $%d", *q.Status)
	}
	if q.Priority != nil {
		add("priority = $%d", *q.Priority)
	}
	if q.Q != "" {
		args = append(args, "%"+q.Q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if q.NotDone {
		add("status <> $%d", StatusDone)
	}
	if q.DueFrom != nil {
		add("due_date >= $%d", *q.DueFrom)
	}
	if q.DueTo != nil {
		add("due_date <= $%d", *q.DueTo)
	}
	if q.DueBefore != nil {
		add("due_date < $%d", *q.DueBefore)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
