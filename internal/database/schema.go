package database

import "fmt"

// schema is the full database schema. The partial unique indexes on
// chat_threads are what make thread resolution race-free: concurrent
// get-or-create calls for the same (subject, requester, owner) tuple
// collapse onto one row.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name     TEXT NOT NULL,
    college_name  TEXT NOT NULL DEFAULT '',
    phone         TEXT NOT NULL DEFAULT '',
    is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
    is_blocked    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_seen     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS items (
    id              UUID PRIMARY KEY,
    user_id         UUID NOT NULL REFERENCES users(id),
    title           TEXT NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL CHECK (category IN ('books', 'gadgets', 'clothes', 'furniture', 'stationery', 'other')),
    condition       TEXT NOT NULL CHECK (condition IN ('new', 'like-new', 'good', 'fair')),
    image_url       TEXT NOT NULL DEFAULT '',
    pickup_location TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'requested', 'given-away')),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS item_requests (
    id           UUID PRIMARY KEY,
    item_id      UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    requester_id UUID NOT NULL REFERENCES users(id),
    message      TEXT NOT NULL CHECK (message <> ''),
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected', 'completed')),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS lost_found (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL REFERENCES users(id),
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image_url   TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL CHECK (kind IN ('lost', 'found')),
    status      TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'returned', 'resolved')),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_threads (
    id            UUID PRIMARY KEY,
    item_id       UUID REFERENCES items(id) ON DELETE CASCADE,
    lost_found_id UUID REFERENCES lost_found(id) ON DELETE CASCADE,
    owner_id      UUID NOT NULL REFERENCES users(id),
    requester_id  UUID NOT NULL REFERENCES users(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK ((item_id IS NULL) <> (lost_found_id IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_threads_item_tuple
    ON chat_threads(item_id, requester_id, owner_id) WHERE item_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_threads_lostfound_tuple
    ON chat_threads(lost_found_id, requester_id, owner_id) WHERE lost_found_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS chat_messages (
    id         UUID PRIMARY KEY,
    thread_id  UUID NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
    sender_id  UUID NOT NULL REFERENCES users(id),
    body       TEXT NOT NULL CHECK (body <> ''),
    is_read    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON chat_messages(thread_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES users(id),
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    is_read    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS eco_points (
    user_id UUID PRIMARY KEY REFERENCES users(id),
    points  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reports (
    id          UUID PRIMARY KEY,
    item_id     UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    reporter_id UUID NOT NULL REFERENCES users(id),
    reason      TEXT NOT NULL,
    details     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func (db *PostgresStore) EnsureSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
