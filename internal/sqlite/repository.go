// Package sqlite is the local persistence layer: the advisory bounty-id
// record, stored agent characters, and a cache of ingested posts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flyfishlabs/bountyd/internal/agents"
	"github.com/flyfishlabs/bountyd/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS bounty_ids (
	bounty_id   TEXT PRIMARY KEY,
	recorded_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS characters (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	author     TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Repository implements domain.BountyIDStore, agents.CharacterStore, and the
// firehose post cache on a single SQLite database.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (and if needed creates) the database at path, verifies
// the connection, and applies the schema. Call Close when done.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record remembers a bounty id. Re-recording an existing id is a no-op.
func (r *Repository) Record(ctx context.Context, bountyID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bounty_ids (bounty_id, recorded_at)
		VALUES (?, ?)
		ON CONFLICT (bounty_id) DO NOTHING`,
		bountyID, time.Now().UTC(),
	)
	return err
}

// Exists reports whether a bounty id has been recorded.
func (r *Repository) Exists(ctx context.Context, bountyID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM bounty_ids WHERE bounty_id = ?`, bountyID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveCharacter upserts a character definition by name.
func (r *Repository) SaveCharacter(ctx context.Context, name string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO characters (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC(),
	)
	return err
}

// GetCharacter retrieves a character definition by name. Returns
// agents.ErrCharacterNotFound when the name is unknown.
func (r *Repository) GetCharacter(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM characters WHERE name = ?`, name,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, agents.ErrCharacterNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// ListCharacters returns all stored character definitions, ordered by name.
func (r *Repository) ListCharacters(ctx context.Context) ([]agents.StoredCharacter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, data FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var chars []agents.StoredCharacter
	for rows.Next() {
		var c agents.StoredCharacter
		var data string
		if err := rows.Scan(&c.Name, &data); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		c.Data = []byte(data)
		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return chars, nil
}

// SavePost caches one ingested post.
func (r *Repository) SavePost(ctx context.Context, post domain.RawPost) error {
	ts := post.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (author, text, created_at)
		VALUES (?, ?, ?)`,
		post.Author, post.Text, ts,
	)
	return err
}

// RecentPosts returns the newest cached posts, most recent first.
func (r *Repository) RecentPosts(ctx context.Context, limit int) ([]domain.RawPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT author, text, created_at
		FROM posts
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.RawPost
	for rows.Next() {
		var p domain.RawPost
		if err := rows.Scan(&p.Author, &p.Text, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// DeleteOldPosts trims the post cache to maxRows, keeping the most recent.
// Returns the number of rows deleted.
func (r *Repository) DeleteOldPosts(ctx context.Context, maxRows int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM posts WHERE id IN (
			SELECT id FROM posts
			ORDER BY id DESC
			LIMIT -1 OFFSET ?
		)`, maxRows,
	)
	if err != nil {
		return 0, fmt.Errorf("delete excess posts: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
