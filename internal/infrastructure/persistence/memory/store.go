// Package memory implements the practice and learner repositories on plain
// maps. It backs the demo mode and serves as the collaborator in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

type state struct {
	deals     map[string]*practice.Deal
	exercises map[string]*practice.Exercise
	bids      map[string]*practice.ExerciseBid
	comments  map[string]*practice.Comment
	learners  map[string]*learner.Learner
	emails    map[learner.Email]string

	// followUps maps an ExerciseBid id to the exercise it produced.
	followUps map[string]string

	// bidSeq records insertion order, breaking ties between calls stored
	// at the same instant.
	bidSeq  map[string]int64
	lastSeq int64
}

func newState() *state {
	return &state{
		deals:     make(map[string]*practice.Deal),
		exercises: make(map[string]*practice.Exercise),
		bids:      make(map[string]*practice.ExerciseBid),
		comments:  make(map[string]*practice.Comment),
		learners:  make(map[string]*learner.Learner),
		emails:    make(map[learner.Email]string),
		followUps: make(map[string]string),
		bidSeq:    make(map[string]int64),
	}
}

// clone copies the maps. Practice records are immutable and shared; learners
// are mutable and copied.
func (st *state) clone() *state {
	c := &state{
		deals:     make(map[string]*practice.Deal, len(st.deals)),
		exercises: make(map[string]*practice.Exercise, len(st.exercises)),
		bids:      make(map[string]*practice.ExerciseBid, len(st.bids)),
		comments:  make(map[string]*practice.Comment, len(st.comments)),
		learners:  make(map[string]*learner.Learner, len(st.learners)),
		emails:    make(map[learner.Email]string, len(st.emails)),
		followUps: make(map[string]string, len(st.followUps)),
		bidSeq:    make(map[string]int64, len(st.bidSeq)),
		lastSeq:   st.lastSeq,
	}
	for k, v := range st.deals {
		c.deals[k] = v
	}
	for k, v := range st.exercises {
		c.exercises[k] = v
	}
	for k, v := range st.bids {
		c.bids[k] = v
	}
	for k, v := range st.comments {
		c.comments[k] = v
	}
	for k, v := range st.learners {
		cp := *v
		c.learners[k] = &cp
	}
	for k, v := range st.emails {
		c.emails[k] = v
	}
	for k, v := range st.followUps {
		c.followUps[k] = v
	}
	for k, v := range st.bidSeq {
		c.bidSeq[k] = v
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is an in-memory practice.Store and learner.Repository.
//
// Writers are serialised. A transaction works on a private copy of the state
// and swaps it in on success, so readers never observe a partial unit of
// work. Calling the Store's own write methods from inside WithinTx deadlocks;
// use the Repository passed to fn.
type Store struct {
	repo

	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *state
}

var (
	_ practice.Store     = (*Store)(nil)
	_ learner.Repository = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{data: newState()}
	s.repo = repo{view: s.read, update: s.write}
	return s
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithinTx implements practice.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(repo practice.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	draft := s.data.clone()
	s.mu.RUnlock()

	direct := func(f func(st *state) error) error { return f(draft) }
	if err := fn(&repo{view: direct, update: direct}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = draft
	s.mu.Unlock()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type repo struct {
	view   func(fn func(st *state) error) error
	update func(fn func(st *state) error) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Deals
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) SaveDeal(ctx context.Context, deal *practice.Deal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		if _, ok := st.deals[deal.ID]; ok {
			return shared.NewDomainError("practice", "SaveDeal", shared.ErrAlreadyExists, "deal already exists")
		}
		st.deals[deal.ID] = deal
		return nil
	})
}

func (r *repo) GetDeal(ctx context.Context, id string) (*practice.Deal, error) {
	var out *practice.Deal
	err := r.view(func(st *state) error {
		d, ok := st.deals[id]
		if !ok {
			return shared.ErrDealNotFound
		}
		out = d
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercises
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) SaveExercise(ctx context.Context, ex *practice.Exercise) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		if _, ok := st.exercises[ex.ID]; ok {
			return shared.NewDomainError("practice", "SaveExercise", shared.ErrAlreadyExists, "exercise already exists")
		}
		if _, ok := st.deals[ex.DealID]; !ok {
			return shared.ErrDealNotFound
		}
		if ex.SourceBidID != nil {
			if _, taken := st.followUps[*ex.SourceBidID]; taken {
				return shared.NewDomainError("practice", "SaveExercise", shared.ErrAlreadyExists, "bid already has a follow-up")
			}
			st.followUps[*ex.SourceBidID] = ex.ID
		}
		st.exercises[ex.ID] = ex
		return nil
	})
}

func (r *repo) GetExercise(ctx context.Context, id string) (*practice.Exercise, error) {
	var out *practice.Exercise
	err := r.view(func(st *state) error {
		ex, ok := st.exercises[id]
		if !ok {
			return shared.ErrExerciseNotFound
		}
		out = ex
		return nil
	})
	return out, err
}

func (r *repo) FindExercises(ctx context.Context, filter practice.ExerciseFilter) ([]*practice.Exercise, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(filter.ExcludeDealIDs))
	for _, id := range filter.ExcludeDealIDs {
		excluded[id] = true
	}

	var out []*practice.Exercise
	err := r.view(func(st *state) error {
		bidOn := map[string]bool{}
		if filter.NotBidBy != "" {
			for _, b := range st.bids {
				if b.LearnerID == filter.NotBidBy {
					bidOn[b.ExerciseID] = true
				}
			}
		}
		for _, ex := range st.exercises {
			if filter.DealID != "" && ex.DealID != filter.DealID {
				continue
			}
			if excluded[ex.DealID] || bidOn[ex.ID] {
				continue
			}
			out = append(out, ex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortOldestFirst(out, func(e *practice.Exercise) (time.Time, string) { return e.CreatedAt, e.ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercise bids
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) SaveExerciseBid(ctx context.Context, bid *practice.ExerciseBid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		if _, ok := st.bids[bid.ID]; ok {
			return shared.NewDomainError("practice", "SaveExerciseBid", shared.ErrAlreadyExists, "exercise bid already exists")
		}
		if _, ok := st.exercises[bid.ExerciseID]; !ok {
			return shared.ErrExerciseNotFound
		}
		st.bids[bid.ID] = bid
		st.lastSeq++
		st.bidSeq[bid.ID] = st.lastSeq
		return nil
	})
}

func (r *repo) GetExerciseBid(ctx context.Context, id string) (*practice.ExerciseBid, error) {
	var out *practice.ExerciseBid
	err := r.view(func(st *state) error {
		b, ok := st.bids[id]
		if !ok {
			return shared.ErrExerciseBidNotFound
		}
		out = b
		return nil
	})
	return out, err
}

func (r *repo) ListBidsByExercise(ctx context.Context, exerciseID string) ([]*practice.ExerciseBid, error) {
	return r.collectBids(ctx, 0, func(_ *state, b *practice.ExerciseBid) bool {
		return b.ExerciseID == exerciseID
	})
}

func (r *repo) ListRecentBidsByLearner(ctx context.Context, learnerID string, limit int) ([]*practice.ExerciseBid, error) {
	all, err := r.collectBids(ctx, 0, func(_ *state, b *practice.ExerciseBid) bool {
		return b.LearnerID == learnerID
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *repo) ListBidsWithoutFollowUp(ctx context.Context, limit int) ([]*practice.ExerciseBid, error) {
	return r.collectBids(ctx, limit, func(st *state, b *practice.ExerciseBid) bool {
		_, ok := st.followUps[b.ID]
		return !ok && !b.EndsAuction
	})
}

// collectBids returns matching bids oldest first, truncated to limit if
// limit > 0.
func (r *repo) collectBids(ctx context.Context, limit int, keep func(st *state, b *practice.ExerciseBid) bool) ([]*practice.ExerciseBid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type entry struct {
		bid *practice.ExerciseBid
		seq int64
	}
	var found []entry
	err := r.view(func(st *state) error {
		for _, b := range st.bids {
			if keep(st, b) {
				found = append(found, entry{bid: b, seq: st.bidSeq[b.ID]})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].bid.CreatedAt.Equal(found[j].bid.CreatedAt) {
			return found[i].bid.CreatedAt.Before(found[j].bid.CreatedAt)
		}
		return found[i].seq < found[j].seq
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]*practice.ExerciseBid, len(found))
	for i, e := range found {
		out[i] = e.bid
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) SaveComment(ctx context.Context, c *practice.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		if _, ok := st.exercises[c.ExerciseID]; !ok {
			return shared.ErrExerciseNotFound
		}
		st.comments[c.ID] = c
		return nil
	})
}

func (r *repo) GetComment(ctx context.Context, id string) (*practice.Comment, error) {
	var out *practice.Comment
	err := r.view(func(st *state) error {
		c, ok := st.comments[id]
		if !ok {
			return shared.ErrCommentNotFound
		}
		out = c
		return nil
	})
	return out, err
}

func (r *repo) ListCommentsByExercise(ctx context.Context, exerciseID string) ([]*practice.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*practice.Comment
	err := r.view(func(st *state) error {
		for _, c := range st.comments {
			if c.ExerciseID == exerciseID {
				out = append(out, c)
			}
		}
		return nil
	})
	sortOldestFirst(out, func(c *practice.Comment) (time.Time, string) { return c.CreatedAt, c.ID })
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Review
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) ListConflictingExercises(ctx context.Context, learnerID string) ([]*practice.Exercise, error) {
	tallies, err := r.tally(ctx)
	if err != nil {
		return nil, err
	}

	var out []*practice.Exercise
	err = r.view(func(st *state) error {
		for _, t := range tallies {
			if t.distinct <= 1 || !t.learners[learnerID] {
				continue
			}
			out = append(out, st.exercises[t.exerciseID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out, func(e *practice.Exercise) (time.Time, string) { return e.CreatedAt, e.ID })
	return out, nil
}

func (r *repo) ListBidTallies(ctx context.Context) ([]practice.BidTally, error) {
	tallies, err := r.tally(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]practice.BidTally, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, practice.BidTally{
			ExerciseID:   t.exerciseID,
			Bids:         t.bids,
			DistinctBids: t.distinct,
			CreatedAt:    t.createdAt,
		})
	}
	sortOldestFirst(out, func(t practice.BidTally) (time.Time, string) { return t.CreatedAt, t.ExerciseID })
	return out, nil
}

type exerciseTally struct {
	exerciseID string
	createdAt  time.Time
	bids       int
	distinct   int
	learners   map[string]bool
}

func (r *repo) tally(ctx context.Context) (map[string]*exerciseTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tallies := make(map[string]*exerciseTally)
	err := r.view(func(st *state) error {
		calls := make(map[string]map[string]bool)
		for id, ex := range st.exercises {
			tallies[id] = &exerciseTally{exerciseID: id, createdAt: ex.CreatedAt, learners: map[string]bool{}}
			calls[id] = map[string]bool{}
		}
		for _, b := range st.bids {
			t, ok := tallies[b.ExerciseID]
			if !ok {
				continue
			}
			t.bids++
			t.learners[b.LearnerID] = true
			calls[b.ExerciseID][b.Bid.String()] = true
		}
		for id, set := range calls {
			tallies[id].distinct = len(set)
		}
		return nil
	})
	return tallies, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Learners
// ─────────────────────────────────────────────────────────────────────────────

func (r *repo) Create(ctx context.Context, l *learner.Learner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		if _, ok := st.emails[l.Email]; ok {
			return shared.ErrLearnerAlreadyExists
		}
		if _, ok := st.learners[l.ID]; ok {
			return shared.ErrLearnerAlreadyExists
		}
		cp := *l
		st.learners[l.ID] = &cp
		st.emails[l.Email] = l.ID
		return nil
	})
}

func (r *repo) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	var out *learner.Learner
	err := r.view(func(st *state) error {
		l, ok := st.learners[id]
		if !ok {
			return shared.ErrLearnerNotFound
		}
		cp := *l
		out = &cp
		return nil
	})
	return out, err
}

func (r *repo) GetByEmail(ctx context.Context, email learner.Email) (*learner.Learner, error) {
	var out *learner.Learner
	err := r.view(func(st *state) error {
		id, ok := st.emails[email]
		if !ok {
			return shared.ErrLearnerNotFound
		}
		cp := *st.learners[id]
		out = &cp
		return nil
	})
	return out, err
}

func (r *repo) List(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*learner.Learner
	err := r.view(func(st *state) error {
		for _, l := range st.learners {
			cp := *l
			out = append(out, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out, func(l *learner.Learner) (time.Time, string) { return l.CreatedAt, l.ID })

	if opts.Offset >= len(out) {
		return []*learner.Learner{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *repo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(func(st *state) error {
		l, ok := st.learners[id]
		if !ok {
			return shared.ErrLearnerNotFound
		}
		l.Touch(at)
		return nil
	})
}

// sortOldestFirst orders by creation time, then id.
func sortOldestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
