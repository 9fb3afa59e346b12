package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// LearnerRepository implements learner.Repository for PostgreSQL.
type LearnerRepository struct {
	conn *Connection
}

var _ learner.Repository = (*LearnerRepository)(nil)

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

const learnerColumns = `id::text, email, password_hash, created_at, last_active`

// Create stores a new learner.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO learners (id, email, password_hash, created_at, last_active)
		VALUES ($1, $2, $3, $4, $5)
	`, l.ID, l.Email.String(), l.PasswordHash, l.CreatedAt, l.LastActive)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}
	return nil
}

// GetByID returns a learner by id.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	return r.scanLearner(r.conn.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learners WHERE id = $1`, id))
}

// GetByEmail returns a learner by email.
func (r *LearnerRepository) GetByEmail(ctx context.Context, email learner.Email) (*learner.Learner, error) {
	return r.scanLearner(r.conn.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learners WHERE email = $1`, email.String()))
}

// List returns learners oldest first.
func (r *LearnerRepository) List(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+learnerColumns+` FROM learners
		ORDER BY created_at, id
		LIMIT NULLIF($1::int, 0) OFFSET $2
	`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list learners: %w", err)
	}
	defer rows.Close()

	out := []*learner.Learner{}
	for rows.Next() {
		l, err := r.scanLearner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// TouchLastActive moves last_active forward; it never moves it back.
func (r *LearnerRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE learners SET last_active = GREATEST(last_active, $2)
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch learner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}
	return nil
}

func (r *LearnerRepository) scanLearner(row pgx.Row) (*learner.Learner, error) {
	var (
		l     learner.Learner
		email string
	)
	if err := row.Scan(&l.ID, &email, &l.PasswordHash, &l.CreatedAt, &l.LastActive); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}
	l.Email = learner.Email(email)
	l.CreatedAt = l.CreatedAt.UTC()
	l.LastActive = l.LastActive.UTC()
	return &l, nil
}
