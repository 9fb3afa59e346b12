package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PracticeStore implements practice.Store for PostgreSQL.
type PracticeStore struct {
	practiceRepo
	conn *Connection
}

var _ practice.Store = (*PracticeStore)(nil)

// NewPracticeStore creates a new PracticeStore.
func NewPracticeStore(conn *Connection) *PracticeStore {
	return &PracticeStore{practiceRepo: practiceRepo{q: conn}, conn: conn}
}

// WithinTx runs fn against a repository bound to one transaction.
func (s *PracticeStore) WithinTx(ctx context.Context, fn func(repo practice.Repository) error) error {
	return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(&practiceRepo{q: tx})
	})
}

// practiceRepo runs the practice queries against a pool or a transaction.
type practiceRepo struct {
	q Querier
}

const exerciseColumns = `e.id::text, e.deal_id::text, e.bids, e.parent_id::text, e.source_bid_id::text, e.created_at`
const bidColumns = `b.id::text, b.exercise_id::text, b.learner_id::text, b.bid, b.ends_auction, b.created_at`
const commentColumns = `c.id::text, c.exercise_id::text, c.learner_id::text, c.text, c.created_at`

// ─────────────────────────────────────────────────────────────────────────────
// Deals
// ─────────────────────────────────────────────────────────────────────────────

// SaveDeal stores a new deal.
func (r *practiceRepo) SaveDeal(ctx context.Context, d *practice.Deal) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO deals (id, dealer, vulnerable, north, east, south, west, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		d.ID,
		d.Deal.Dealer.String(),
		d.Deal.Vulnerable.String(),
		d.Deal.Hand(bridge.North).String(),
		d.Deal.Hand(bridge.East).String(),
		d.Deal.Hand(bridge.South).String(),
		d.Deal.Hand(bridge.West).String(),
		d.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("practice", "SaveDeal", shared.ErrAlreadyExists, "deal already exists", err)
		}
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

// GetDeal returns a deal by id.
func (r *practiceRepo) GetDeal(ctx context.Context, id string) (*practice.Deal, error) {
	var (
		dealID, dealer, vul      string
		north, east, south, west string
		createdAt                time.Time
	)
	err := r.q.QueryRow(ctx, `
		SELECT id::text, dealer, vulnerable, north, east, south, west, created_at
		FROM deals
		WHERE id = $1
	`, id).Scan(&dealID, &dealer, &vul, &north, &east, &south, &west, &createdAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	deal, err := decodeDeal(dealer, vul, [4]string{north, east, south, west})
	if err != nil {
		return nil, fmt.Errorf("failed to decode deal %s: %w", dealID, err)
	}
	return &practice.Deal{ID: dealID, Deal: deal, CreatedAt: createdAt.UTC()}, nil
}

func decodeDeal(dealer, vul string, hands [4]string) (bridge.Deal, error) {
	seat, err := bridge.ParseSeat(dealer)
	if err != nil {
		return bridge.Deal{}, err
	}
	v, err := bridge.ParseVulnerability(vul)
	if err != nil {
		return bridge.Deal{}, err
	}
	var parsed [4]bridge.Hand
	for i, text := range hands {
		if parsed[i], err = bridge.ParseHand(text); err != nil {
			return bridge.Deal{}, err
		}
	}
	return bridge.NewDeal(seat, v, parsed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercises
// ─────────────────────────────────────────────────────────────────────────────

// SaveExercise stores a new exercise.
func (r *practiceRepo) SaveExercise(ctx context.Context, ex *practice.Exercise) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO exercises (id, deal_id, bids, parent_id, source_bid_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ex.ID, ex.DealID, ex.Bids.String(), ex.ParentID, ex.SourceBidID, ex.CreatedAt)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.WrapError("practice", "SaveExercise", shared.ErrAlreadyExists, "exercise or follow-up already exists", err)
		case IsForeignKeyViolation(err):
			return shared.ErrDealNotFound
		}
		return fmt.Errorf("failed to save exercise: %w", err)
	}
	return nil
}

// GetExercise returns an exercise by id.
func (r *practiceRepo) GetExercise(ctx context.Context, id string) (*practice.Exercise, error) {
	row := r.q.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = $1`, id)
	ex, err := scanExercise(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return ex, nil
}

// FindExercises returns the exercises matching the filter, oldest first.
func (r *practiceRepo) FindExercises(ctx context.Context, filter practice.ExerciseFilter) ([]*practice.Exercise, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DealID != "" {
		where = append(where, "e.deal_id = "+arg(filter.DealID))
	}
	if len(filter.ExcludeDealIDs) > 0 {
		where = append(where, "NOT (e.deal_id = ANY("+arg(filter.ExcludeDealIDs)+"::uuid[]))")
	}
	if filter.NotBidBy != "" {
		where = append(where, "NOT EXISTS (SELECT 1 FROM exercise_bids b WHERE b.exercise_id = e.id AND b.learner_id = "+arg(filter.NotBidBy)+")")
	}

	query := `SELECT ` + exerciseColumns + ` FROM exercises e`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.created_at, e.id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	return r.queryExercises(ctx, query, args...)
}

func (r *practiceRepo) queryExercises(ctx context.Context, query string, args ...any) ([]*practice.Exercise, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	var out []*practice.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func scanExercise(row pgx.Row) (*practice.Exercise, error) {
	var (
		ex        practice.Exercise
		bids      string
		createdAt time.Time
	)
	if err := row.Scan(&ex.ID, &ex.DealID, &bids, &ex.ParentID, &ex.SourceBidID, &createdAt); err != nil {
		return nil, err
	}
	seq, err := bridge.ParseBidSequence(bids)
	if err != nil {
		return nil, fmt.Errorf("exercise %s: %w", ex.ID, err)
	}
	ex.Bids = seq
	ex.CreatedAt = createdAt.UTC()
	return &ex, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercise bids
// ─────────────────────────────────────────────────────────────────────────────

// missingParent maps a failed reference on a call or comment to the row
// that does not exist.
func missingParent(err error) error {
	if strings.HasSuffix(ForeignKeyConstraint(err), "_learner") {
		return shared.ErrLearnerNotFound
	}
	return shared.ErrExerciseNotFound
}

// SaveExerciseBid stores a new call.
func (r *practiceRepo) SaveExerciseBid(ctx context.Context, b *practice.ExerciseBid) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO exercise_bids (id, exercise_id, learner_id, bid, ends_auction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.ExerciseID, b.LearnerID, b.Bid.String(), b.EndsAuction, b.CreatedAt)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.WrapError("practice", "SaveExerciseBid", shared.ErrAlreadyExists, "exercise bid already exists", err)
		case IsForeignKeyViolation(err):
			return missingParent(err)
		}
		return fmt.Errorf("failed to save exercise bid: %w", err)
	}
	return nil
}

// GetExerciseBid returns a call by id.
func (r *practiceRepo) GetExerciseBid(ctx context.Context, id string) (*practice.ExerciseBid, error) {
	row := r.q.QueryRow(ctx, `SELECT `+bidColumns+` FROM exercise_bids b WHERE b.id = $1`, id)
	b, err := scanExerciseBid(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrExerciseBidNotFound
		}
		return nil, fmt.Errorf("failed to get exercise bid: %w", err)
	}
	return b, nil
}

// ListBidsByExercise returns the calls on an exercise, oldest first.
func (r *practiceRepo) ListBidsByExercise(ctx context.Context, exerciseID string) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx, `
		SELECT `+bidColumns+` FROM exercise_bids b
		WHERE b.exercise_id = $1
		ORDER BY b.created_at, b.seq
	`, exerciseID)
}

// ListRecentBidsByLearner returns the learner's latest calls, newest first.
func (r *practiceRepo) ListRecentBidsByLearner(ctx context.Context, learnerID string, limit int) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx, `
		SELECT `+bidColumns+` FROM exercise_bids b
		WHERE b.learner_id = $1
		ORDER BY b.created_at DESC, b.seq DESC
		LIMIT NULLIF($2::int, 0)
	`, learnerID, limit)
}

// ListBidsWithoutFollowUp returns calls no exercise names as its source.
func (r *practiceRepo) ListBidsWithoutFollowUp(ctx context.Context, limit int) ([]*practice.ExerciseBid, error) {
	return r.queryBids(ctx, `
		SELECT `+bidColumns+` FROM exercise_bids b
		WHERE NOT b.ends_auction
		  AND NOT EXISTS (SELECT 1 FROM exercises e WHERE e.source_bid_id = b.id)
		ORDER BY b.created_at, b.seq
		LIMIT NULLIF($1::int, 0)
	`, limit)
}

func (r *practiceRepo) queryBids(ctx context.Context, query string, args ...any) ([]*practice.ExerciseBid, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercise bids: %w", err)
	}
	defer rows.Close()

	var out []*practice.ExerciseBid
	for rows.Next() {
		b, err := scanExerciseBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise bid: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanExerciseBid(row pgx.Row) (*practice.ExerciseBid, error) {
	var (
		b         practice.ExerciseBid
		call      string
		createdAt time.Time
	)
	if err := row.Scan(&b.ID, &b.ExerciseID, &b.LearnerID, &call, &b.EndsAuction, &createdAt); err != nil {
		return nil, err
	}
	bid, err := bridge.ParseBid(call)
	if err != nil {
		return nil, fmt.Errorf("exercise bid %s: %w", b.ID, err)
	}
	b.Bid = bid
	b.CreatedAt = createdAt.UTC()
	return &b, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

// SaveComment stores a new comment.
func (r *practiceRepo) SaveComment(ctx context.Context, c *practice.Comment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO comments (id, exercise_id, learner_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.ExerciseID, c.LearnerID, c.Text, c.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return missingParent(err)
		}
		return fmt.Errorf("failed to save comment: %w", err)
	}
	return nil
}

// GetComment returns a comment by id.
func (r *practiceRepo) GetComment(ctx context.Context, id string) (*practice.Comment, error) {
	var c practice.Comment
	err := r.q.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id).
		Scan(&c.ID, &c.ExerciseID, &c.LearnerID, &c.Text, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// ListCommentsByExercise returns an exercise's comments, oldest first.
func (r *practiceRepo) ListCommentsByExercise(ctx context.Context, exerciseID string) ([]*practice.Comment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+commentColumns+` FROM comments c
		WHERE c.exercise_id = $1
		ORDER BY c.created_at, c.id
	`, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var out []*practice.Comment
	for rows.Next() {
		var c practice.Comment
		if err := rows.Scan(&c.ID, &c.ExerciseID, &c.LearnerID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Review
// ─────────────────────────────────────────────────────────────────────────────

// ListConflictingExercises returns exercises the learner bid on whose
// recorded calls disagree, oldest first.
func (r *practiceRepo) ListConflictingExercises(ctx context.Context, learnerID string) ([]*practice.Exercise, error) {
	return r.queryExercises(ctx, `
		SELECT `+exerciseColumns+` FROM exercises e
		WHERE e.id IN (
			SELECT exercise_id FROM exercise_bids
			WHERE exercise_id IN (SELECT exercise_id FROM exercise_bids WHERE learner_id = $1)
			GROUP BY exercise_id
			HAVING COUNT(DISTINCT bid) > 1
		)
		ORDER BY e.created_at, e.id
	`, learnerID)
}

// ListBidTallies counts calls per exercise, oldest exercise first.
func (r *practiceRepo) ListBidTallies(ctx context.Context) ([]practice.BidTally, error) {
	rows, err := r.q.Query(ctx, `
		SELECT e.id::text, COUNT(b.id), COUNT(DISTINCT b.bid), e.created_at
		FROM exercises e
		LEFT JOIN exercise_bids b ON b.exercise_id = e.id
		GROUP BY e.id, e.created_at
		ORDER BY e.created_at, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bid tallies: %w", err)
	}
	defer rows.Close()

	var out []practice.BidTally
	for rows.Next() {
		var t practice.BidTally
		if err := rows.Scan(&t.ExerciseID, &t.Bids, &t.DistinctBids, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid tally: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
