// Package sqlite provides a single-file SQLite store for practice and
// learner state. The bridgectl tool uses it for offline practice.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/sqlite/migrations"
)

// Store persists practice and learner state in SQLite.
type Store struct {
	repo
	db *sql.DB
}

var (
	_ practice.Store     = (*Store)(nil)
	_ learner.Repository = (*Store)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repo struct {
	q querier
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; transactions hold the only connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{repo: repo{q: db}, db: db}, nil
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithinTx runs fn against a repository bound to one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repo practice.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&repo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func constraintCode(err error) int {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch constraintCode(err) {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}

// missingParent names the row a failed exercise or learner reference points
// at. SQLite does not report which foreign key failed.
func (r *repo) missingParent(ctx context.Context, exerciseID string) error {
	if _, err := r.GetExercise(ctx, exerciseID); err != nil {
		return err
	}
	return shared.ErrLearnerNotFound
}

func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ─────────────────────────────────────────────────────────────────────────────
// Deals
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) SaveDeal(ctx context.Context, d *practice.Deal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO deals (id, dealer, vulnerable, north, east, south, west, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Deal.Dealer.String(),
		d.Deal.Vulnerable.String(),
		d.Deal.Hand(bridge.North).String(),
		d.Deal.Hand(bridge.East).String(),
		d.Deal.Hand(bridge.South).String(),
		d.Deal.Hand(bridge.West).String(),
		toMillis(d.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("practice", "SaveDeal", shared.ErrAlreadyExists, "deal already exists")
		}
		return fmt.Errorf("save deal: %w", err)
	}
	return nil
}

func (r *repo) GetDeal(ctx context.Context, id string) (*practice.Deal, error) {
	var (
		dealer, vul string
		hands       [4]string
		createdAt   int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT dealer, vulnerable, north, east, south, west, created_at FROM deals WHERE id = ?`, id,
	).Scan(&dealer, &vul, &hands[0], &hands[1], &hands[2], &hands[3], &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrDealNotFound
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}

	seat, err := bridge.ParseSeat(dealer)
	if err != nil {
		return nil, fmt.Errorf("deal %s: %w", id, err)
	}
	v, err := bridge.ParseVulnerability(vul)
	if err != nil {
		return nil, fmt.Errorf("deal %s: %w", id, err)
	}
	var parsed [4]bridge.Hand
	for i, text := range hands {
		if parsed[i], err = bridge.ParseHand(text); err != nil {
			return nil, fmt.Errorf("deal %s: %w", id, err)
		}
	}
	deal, err := bridge.NewDeal(seat, v, parsed)
	if err != nil {
		return nil, fmt.Errorf("deal %s: %w", id, err)
	}
	return &practice.Deal{ID: id, Deal: deal, CreatedAt: fromMillis(createdAt)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercises
// ─────────────────────────────────────────────────────────────────────────────

const exerciseColumns = `e.id, e.deal_id, e.bids, e.parent_id, e.source_bid_id, e.created_at`

func (r *repo) SaveExercise(ctx context.Context, ex *practice.Exercise) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO exercises (id, deal_id, bids, parent_id, source_bid_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.DealID, ex.Bids.String(), ex.ParentID, ex.SourceBidID, toMillis(ex.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return shared.NewDomainError("practice", "SaveExercise", shared.ErrAlreadyExists, "exercise or follow-up already exists")
		case isForeignKeyViolation(err):
			return shared.ErrDealNotFound
		}
		return fmt.Errorf("save exercise: %w", err)
	}
	return nil
}

func (r *repo) GetExercise(ctx context.Context, id string) (*practice.Exercise, error) {
	ex, err := scanExercise(r.q.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return ex, nil
}

func (r *repo) FindExercises(ctx context.Context, filter practice.ExerciseFilter) ([]*practice.Exercise, error) {
	var (
		where []string
		args  []any
	)
	if filter.DealID != "" {
		where = append(where, "e.deal_id = ?")
		args = append(args, filter.DealID)
	}
	if len(filter.ExcludeDealIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(filter.ExcludeDealIDs)), ",")
		where = append(where, "e.deal_id NOT IN ("+marks+")")
		for _, id := range filter.ExcludeDealIDs {
			args = append(args, id)
		}
	}
	if filter.NotBidBy != "" {
		where = append(where, "NOT EXISTS (SELECT 1 FROM exercise_bids b WHERE b.exercise_id = e.id AND b.learner_id = ?)")
		args = append(args, filter.NotBidBy)
	}

	query := `SELECT ` + exerciseColumns + ` FROM exercises e`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.created_at, e.id LIMIT ?"
	args = append(args, limitArg(filter.Limit))

	return r.queryExercises(ctx, query, args...)
}

func (r *repo) queryExercises(ctx context.Context, query string, args ...any) ([]*practice.Exercise, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	var out []*practice.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*practice.Exercise, error) {
	var (
		ex                practice.Exercise
		bids              string
		parent, sourceBid sql.NullString
		createdAt         int64
	)
	if err := row.Scan(&ex.ID, &ex.DealID, &bids, &parent, &sourceBid, &createdAt); err != nil {
		return nil, err
	}
	seq, err := bridge.ParseBidSequence(bids)
	if err != nil {
		return nil, fmt.Errorf("exercise %s: %w", ex.ID, err)
	}
	ex.Bids = seq
	if parent.Valid {
		ex.ParentID = &parent.String
	}
	if sourceBid.Valid {
		ex.SourceBidID = &sourceBid.String
	}
	ex.CreatedAt = fromMillis(createdAt)
	return &ex, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercise bids
// ─────────────────────────────────────────────────────────────────────────────

const bidColumns = `b.id, b.exercise_id, b.learner_id, b.bid, b.ends_auction, b.created_at`

func (r *repo) SaveExerciseBid(ctx context.Context, b *practice.ExerciseBid) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO exercise_bids (id, exercise_id, learner_id, bid, ends_auction, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.ExerciseID, b.LearnerID, b.Bid.String(), b.EndsAuction, toMillis(b.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return shared.NewDomainError("practice", "SaveExerciseBid", shared.ErrAlreadyExists, "exercise bid already exists")
		case isForeignKeyViolation(err):
			return r.missingParent(ctx, b.ExerciseID)
		}
		return fmt.Errorf("save exercise bid: %w", err)
	}
	return nil
}

func (r *repo) GetExerciseBid(ctx context.Context, id string) (*practice.ExerciseBid, error) {
	b, err := scanExerciseBid(r.q.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM exercise_bids b WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrExerciseBidNotFound
		}
		return nil, fmt.Errorf("get exercise bid: %w", err)
	}
	return b, nil
}

func (r *repo) ListBidsByExercise(ctx context.Context, exerciseID string) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx,
		`SELECT `+bidColumns+` FROM exercise_bids b WHERE b.exercise_id = ? ORDER BY b.created_at, b.seq`,
		exerciseID)
}

func (r *repo) ListRecentBidsByLearner(ctx context.Context, learnerID string, limit int) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx,
		`SELECT `+bidColumns+` FROM exercise_bids b WHERE b.learner_id = ?
		 ORDER BY b.created_at DESC, b.seq DESC LIMIT ?`,
		learnerID, limitArg(limit))
}

func (r *repo) ListBidsWithoutFollowUp(ctx context.Context, limit int) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx,
		`SELECT `+bidColumns+` FROM exercise_bids b
		 WHERE b.ends_auction = 0
		   AND NOT EXISTS (SELECT 1 FROM exercises e WHERE e.source_bid_id = b.id)
		 ORDER BY b.created_at, b.seq LIMIT ?`,
		limitArg(limit))
}

func (r *repo) queryBids(ctx context.Context, query string, args ...any) ([]*practice.ExerciseBid, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercise bids: %w", err)
	}
	defer rows.Close()

	var out []*practice.ExerciseBid
	for rows.Next() {
		b, err := scanExerciseBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise bid: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanExerciseBid(row rowScanner) (*practice.ExerciseBid, error) {
	var (
		b         practice.ExerciseBid
		call      string
		createdAt int64
	)
	if err := row.Scan(&b.ID, &b.ExerciseID, &b.LearnerID, &call, &b.EndsAuction, &createdAt); err != nil {
		return nil, err
	}
	bid, err := bridge.ParseBid(call)
	if err != nil {
		return nil, fmt.Errorf("exercise bid %s: %w", b.ID, err)
	}
	b.Bid = bid
	b.CreatedAt = fromMillis(createdAt)
	return &b, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

const commentColumns = `c.id, c.exercise_id, c.learner_id, c.text, c.created_at`

func (r *repo) SaveComment(ctx context.Context, c *practice.Comment) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO comments (id, exercise_id, learner_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ExerciseID, c.LearnerID, c.Text, toMillis(c.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return r.missingParent(ctx, c.ExerciseID)
		}
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}

func (r *repo) GetComment(ctx context.Context, id string) (*practice.Comment, error) {
	c, err := scanComment(r.q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments c WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (r *repo) ListCommentsByExercise(ctx context.Context, exerciseID string) ([]*practice.Comment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments c WHERE c.exercise_id = ? ORDER BY c.created_at, c.id`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var out []*practice.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(row rowScanner) (*practice.Comment, error) {
	var (
		c         practice.Comment
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.ExerciseID, &c.LearnerID, &c.Text, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Review
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) ListConflictingExercises(ctx context.Context, learnerID string) ([]*practice.Exercise, error) {
	return r.queryExercises(ctx, `
		SELECT `+exerciseColumns+` FROM exercises e
		WHERE e.id IN (
			SELECT exercise_id FROM exercise_bids
			WHERE exercise_id IN (SELECT exercise_id FROM exercise_bids WHERE learner_id = ?)
			GROUP BY exercise_id
			HAVING COUNT(DISTINCT bid) > 1
		)
		ORDER BY e.created_at, e.id`, learnerID)
}

func (r *repo) ListBidTallies(ctx context.Context) ([]practice.BidTally, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT e.id, COUNT(b.id), COUNT(DISTINCT b.bid), e.created_at
		FROM exercises e
		LEFT JOIN exercise_bids b ON b.exercise_id = e.id
		GROUP BY e.id, e.created_at
		ORDER BY e.created_at, e.id`)
	if err != nil {
		return nil, fmt.Errorf("query bid tallies: %w", err)
	}
	defer rows.Close()

	var out []practice.BidTally
	for rows.Next() {
		var (
			t         practice.BidTally
			createdAt int64
		)
		if err := rows.Scan(&t.ExerciseID, &t.Bids, &t.DistinctBids, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bid tally: %w", err)
		}
		t.CreatedAt = fromMillis(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Learners
// ─────────────────────────────────────────────────────────────────────────────

const learnerColumns = `id, email, password_hash, created_at, last_active`

func (r *repo) Create(ctx context.Context, l *learner.Learner) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO learners (id, email, password_hash, created_at, last_active) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.Email.String(), l.PasswordHash, toMillis(l.CreatedAt), toMillis(l.LastActive),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("create learner: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	return scanLearner(r.q.QueryRowContext(ctx, `SELECT `+learnerColumns+` FROM learners WHERE id = ?`, id))
}

func (r *repo) GetByEmail(ctx context.Context, email learner.Email) (*learner.Learner, error) {
	return scanLearner(r.q.QueryRowContext(ctx, `SELECT `+learnerColumns+` FROM learners WHERE email = ?`, email.String()))
}

func (r *repo) List(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+learnerColumns+` FROM learners ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limitArg(opts.Limit), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	defer rows.Close()

	out := []*learner.Learner{}
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE learners SET last_active = MAX(last_active, ?) WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("touch learner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch learner: %w", err)
	}
	if n == 0 {
		return shared.ErrLearnerNotFound
	}
	return nil
}

func scanLearner(row rowScanner) (*learner.Learner, error) {
	var (
		l                     learner.Learner
		email                 string
		createdAt, lastActive int64
	)
	if err := row.Scan(&l.ID, &email, &l.PasswordHash, &createdAt, &lastActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("scan learner: %w", err)
	}
	l.Email = learner.Email(email)
	l.CreatedAt = fromMillis(createdAt)
	l.LastActive = fromMillis(lastActive)
	return &l, nil
}
