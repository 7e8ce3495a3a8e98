package tasklist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for task lists.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new task list store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const listColumns = `id, name, owner_user_id, team_id, archived, created_at`

func scanList(scan func(dest ...any) error) (*List, error) {
	l := &List{}
	err := scan(&l.ID, &l.Name, &l.OwnerUserID, &l.TeamID, &l.Archived, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetByID retrieves a list by id. Returns nil when no list exists.
func (s *Store) GetByID(ctx context.Context, id string) (*List, error) {
	l, err := scanList(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+listColumns+` FROM task_lists WHERE id = $1`, id,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting task list: %w", err)
	}
	return l, nil
}

// Create inserts a new list. The schema CHECK constraint backs the
// exactly-one-owner invariant the service enforces.
func (s *Store) Create(ctx context.Context, in CreateListInput) (*List, error) {
	l, err := scanList(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO task_lists (id, name, owner_user_id, team_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+listColumns,
			uuid.NewString(), in.Name, in.OwnerUserID, in.TeamID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating task list: %w", err)
	}
	return l, nil
}

// Update applies the present fields and returns the updated row.
func (s *Store) Update(ctx context.Context, id string, in UpdateListInput) (*List, error) {
	l, err := scanList(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE task_lists
			 SET name = COALESCE($2, name), archived = COALESCE($3, archived)
			 WHERE id = $1
			 RETURNING `+listColumns,
			id, in.Name, in.Archived,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating task list: %w", err)
	}
	return l, nil
}

// Delete removes a list row. The service checks emptiness first; there is no
// cascade here.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM task_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task list: %w", err)
	}
	return nil
}

// ListPersonal returns all lists owned directly by the user, newest first.
func (s *Store) ListPersonal(ctx context.Context, userID string) ([]List, error) {
	return s.list(ctx,
		`SELECT `+listColumns+` FROM task_lists
		 WHERE owner_user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListTeam returns all lists owned by the team, newest first.
func (s *Store) ListTeam(ctx context.Context, teamID string) ([]List, error) {
	return s.list(ctx,
		`SELECT `+listColumns+` FROM task_lists
		 WHERE team_id = $1 ORDER BY created_at DESC`, teamID)
}

func (s *Store) list(ctx context.Context, query string, arg any) ([]List, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing task lists: %w", err)
	}
	defer rows.Close()

	lists := []List{}
	for rows.Next() {
		l, err := scanList(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning task list row: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// CountTasks returns the number of tasks in the list.
func (s *Store) CountTasks(ctx context.Context, listID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM tasks WHERE list_id = $1`, listID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}
