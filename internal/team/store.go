package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for teams and memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new team store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanTeam(scan func(dest ...any) error) (*Team, error) {
	t := &Team{}
	err := scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.CreatedByUserID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

const memberColumns = `m.id, m.team_id, m.user_id, m.role, m.joined_at,
	u.id, u.email, u.first_name, u.last_name`

func scanMember(scan func(dest ...any) error) (*Member, error) {
	m := &Member{}
	err := scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt,
		&m.User.ID, &m.User.Email, &m.User.FirstName, &m.User.LastName)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateWithOwner creates the team row and the founding OWNER membership in a
// single transaction. A team is never observably created without its owner.
func (s *Store) CreateWithOwner(ctx context.Context, in CreateTeamInput) (*Team, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := scanTeam(func(dest ...any) error {
		return tx.QueryRow(ctx,
			`INSERT INTO teams (id, name, description, created_by_user_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, name, description, created_at, created_by_user_id`,
			uuid.NewString(), in.Name, in.Description, in.CreatedByUserID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO team_members (id, team_id, user_id, role)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), t.ID, in.CreatedByUserID, RoleOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("creating founding owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing team creation: %w", err)
	}
	return t, nil
}

// GetByID retrieves a team by id. Returns nil when no team exists.
func (s *Store) GetByID(ctx context.Context, id string) (*Team, error) {
	t, err := scanTeam(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT id, name, description, created_at, created_by_user_id
			 FROM teams WHERE id = $1`, id,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// MembershipOf returns the membership row for (teamID, userID), or nil when
// the user is not a member.
func (s *Store) MembershipOf(ctx context.Context, teamID, userID string) (*Member, error) {
	m, err := scanMember(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+memberColumns+`
			 FROM team_members m JOIN users u ON m.user_id = u.id
			 WHERE m.team_id = $1 AND m.user_id = $2`,
			teamID, userID,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting membership: %w", err)
	}
	return m, nil
}

// GetMember returns the membership with the given id scoped to teamID, or nil
// when absent or belonging to another team.
func (s *Store) GetMember(ctx context.Context, teamID, memberID string) (*Member, error) {
	m, err := scanMember(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+memberColumns+`
			 FROM team_members m JOIN users u ON m.user_id = u.id
			 WHERE m.id = $1 AND m.team_id = $2`,
			memberID, teamID,
		).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	return m, nil
}

// CountOwners returns the number of OWNER memberships for the team.
func (s *Store) CountOwners(ctx context.Context, teamID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM team_members WHERE team_id = $1 AND role = $2`,
		teamID, RoleOwner,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting owners: %w", err)
	}
	return n, nil
}

// ListByUser returns the teams the user belongs to with their role in each,
// most recently joined first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]TeamWithRole, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.description, t.created_at, t.created_by_user_id, m.role
		 FROM team_members m JOIN teams t ON m.team_id = t.id
		 WHERE m.user_id = $1
		 ORDER BY m.joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams for user: %w", err)
	}
	defer rows.Close()

	items := []TeamWithRole{}
	for rows.Next() {
		var item TeamWithRole
		err := rows.Scan(&item.Team.ID, &item.Team.Name, &item.Team.Description,
			&item.Team.CreatedAt, &item.Team.CreatedByUserID, &item.MyRole)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListMembers returns all memberships for a team ordered by join date.
func (s *Store) ListMembers(ctx context.Context, teamID string) ([]Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+`
		 FROM team_members m JOIN users u ON m.user_id = u.id
		 WHERE m.team_id = $1
		 ORDER BY m.joined_at ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// AddMember inserts a membership row for (teamID, userID) with the given
// role. The unique (team_id, user_id) constraint backs the duplicate check
// done by the service.
func (s *Store) AddMember(ctx context.Context, teamID, userID string, role Role) (*Member, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO team_members (id, team_id, user_id, role)
		 VALUES ($1, $2, $3, $4)`,
		id, teamID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}
	m, err := s.GetMember(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("adding member: inserted row not found")
	}
	return m, nil
}

// UpdateMemberRoleGuarded changes a member's role after re-checking the
// sole-owner rule inside a serializable per-team transaction, closing the
// window between two concurrent demotions. Returns ErrMemberNotFound or
// ErrLastOwner when blocked.
func (s *Store) UpdateMemberRoleGuarded(ctx context.Context, teamID, memberID string, role Role) (*Member, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, owners, err := lockMember(ctx, tx, teamID, memberID)
	if err != nil {
		return nil, err
	}

	if !CanDemoteOrRemove(current, owners, role != RoleOwner) {
		return nil, ErrLastOwner
	}

	_, err = tx.Exec(ctx,
		`UPDATE team_members SET role = $1 WHERE id = $2`,
		role, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating member role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing role update: %w", err)
	}
	return s.GetMember(ctx, teamID, memberID)
}

// DeleteMemberGuarded removes a membership after re-checking the sole-owner
// rule in the same way as UpdateMemberRoleGuarded.
func (s *Store) DeleteMemberGuarded(ctx context.Context, teamID, memberID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, owners, err := lockMember(ctx, tx, teamID, memberID)
	if err != nil {
		return err
	}

	if !CanDemoteOrRemove(current, owners, true) {
		return ErrLastOwner
	}

	_, err = tx.Exec(ctx, `DELETE FROM team_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing member removal: %w", err)
	}
	return nil
}

// lockMember reads the target membership row FOR UPDATE and the team's
// current owner count within tx.
func lockMember(ctx context.Context, tx pgx.Tx, teamID, memberID string) (Role, int, error) {
	var role Role
	err := tx.QueryRow(ctx,
		`SELECT role FROM team_members WHERE id = $1 AND team_id = $2 FOR UPDATE`,
		memberID, teamID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrMemberNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("locking member: %w", err)
	}

	var owners int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM team_members WHERE team_id = $1 AND role = $2`,
		teamID, RoleOwner,
	).Scan(&owners)
	if err != nil {
		return "", 0, fmt.Errorf("counting owners: %w", err)
	}
	return role, owners, nil
}

// DeleteCascade removes the team and everything it owns in one transaction:
// tasks in team lists, the lists themselves, all memberships, then the team
// row. Partial deletion is never observable.
func (s *Store) DeleteCascade(ctx context.Context, teamID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`DELETE FROM tasks WHERE list_id IN (SELECT id FROM task_lists WHERE team_id = $1)`,
		teamID,
	)
	if err != nil {
		return fmt.Errorf("deleting team tasks: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM task_lists WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("deleting team lists: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("deleting memberships: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing team deletion: %w", err)
	}
	return nil
}
