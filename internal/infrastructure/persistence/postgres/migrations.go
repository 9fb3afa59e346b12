package postgres

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learners",
			UpSQL:   migration001Up,
		},
		{
			Version: 2,
			Name:    "create_practice",
			UpSQL:   migration002Up,
		},
		{
			Version: 3,
			Name:    "bid_order_and_learner_refs",
			UpSQL:   migration003Up,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE LEARNERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS learners (
    id UUID PRIMARY KEY,
    email VARCHAR(254) NOT NULL UNIQUE,
    password_hash BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_active TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_learners_created_at ON learners(created_at, id);
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PRACTICE TABLES
// Hands and auctions are stored as their text forms.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS deals (
    id UUID PRIMARY KEY,
    dealer VARCHAR(8) NOT NULL,
    vulnerable VARCHAR(8) NOT NULL,
    north TEXT NOT NULL,
    east TEXT NOT NULL,
    south TEXT NOT NULL,
    west TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS exercises (
    id UUID PRIMARY KEY,
    deal_id UUID NOT NULL REFERENCES deals(id),
    bids TEXT NOT NULL DEFAULT '',
    parent_id UUID REFERENCES exercises(id),
    source_bid_id UUID UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_exercises_deal_id ON exercises(deal_id);
CREATE INDEX IF NOT EXISTS idx_exercises_created_at ON exercises(created_at, id);

CREATE TABLE IF NOT EXISTS exercise_bids (
    id UUID PRIMARY KEY,
    exercise_id UUID NOT NULL REFERENCES exercises(id),
    learner_id UUID NOT NULL,
    bid VARCHAR(8) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_exercise_bids_exercise ON exercise_bids(exercise_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_exercise_bids_learner ON exercise_bids(learner_id, created_at DESC, id DESC);

ALTER TABLE exercises
    ADD CONSTRAINT fk_exercises_source_bid
    FOREIGN KEY (source_bid_id) REFERENCES exercise_bids(id);

CREATE TABLE IF NOT EXISTS comments (
    id UUID PRIMARY KEY,
    exercise_id UUID NOT NULL REFERENCES exercises(id),
    learner_id UUID NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comments_exercise ON comments(exercise_id, created_at, id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: BID ORDER AND LEARNER REFERENCES
// seq orders calls stored at the same instant. ends_auction lets the repair
// job skip calls that never get a follow-up.
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
ALTER TABLE exercise_bids
    ADD COLUMN IF NOT EXISTS seq BIGINT GENERATED ALWAYS AS IDENTITY,
    ADD COLUMN IF NOT EXISTS ends_auction BOOLEAN NOT NULL DEFAULT FALSE;

DROP INDEX IF EXISTS idx_exercise_bids_learner;
CREATE INDEX IF NOT EXISTS idx_exercise_bids_learner ON exercise_bids(learner_id, created_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_exercise_bids_open ON exercise_bids(created_at, seq) WHERE NOT ends_auction;

ALTER TABLE exercise_bids
    ADD CONSTRAINT fk_exercise_bids_learner
    FOREIGN KEY (learner_id) REFERENCES learners(id);

ALTER TABLE comments
    ADD CONSTRAINT fk_comments_learner
    FOREIGN KEY (learner_id) REFERENCES learners(id);
`
