package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mangadome/internal/logging"
)

// Status is a library item's reading state.
type Status string

const (
	StatusReading    Status = "reading"
	StatusCompleted  Status = "completed"
	StatusPlanToRead Status = "plan_to_read"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusReading, StatusCompleted, StatusPlanToRead:
		return true
	}
	return false
}

// Item is one tracked title in a user's library.
type Item struct {
	UserID    string    `json:"user_id"`
	MalID     int       `json:"mal_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Favorite  bool      `json:"favorite"`
	Score     *int      `json:"score,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Review is a user's written review of a title.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MalID     int       `json:"mal_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists library items and reviews in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS library_items (
	user_id    TEXT NOT NULL,
	mal_id     INTEGER NOT NULL,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL,
	favorite   INTEGER NOT NULL DEFAULT 0,
	score      INTEGER,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, mal_id)
);
CREATE INDEX IF NOT EXISTS idx_library_items_user ON library_items(user_id);

CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	mal_id     INTEGER NOT NULL,
	rating     INTEGER NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_mal ON reviews(mal_id);
`

// Open creates or opens the store at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("library: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("library: open database: %w", err)
	}
	// Serialize writers; modernc/sqlite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("library: apply schema: %w", err)
	}
	logging.Library("store opened at %s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertItem inserts or replaces a user's entry for a title.
func (s *Store) UpsertItem(ctx context.Context, item Item) error {
	if item.UserID == "" || item.MalID <= 0 {
		return fmt.Errorf("library: user id and mal id are required")
	}
	if !item.Status.Valid() {
		return fmt.Errorf("library: invalid status %q", item.Status)
	}
	item.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO library_items (user_id, mal_id, title, status, favorite, score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, mal_id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			favorite = excluded.favorite,
			score = excluded.score,
			updated_at = excluded.updated_at`,
		item.UserID, item.MalID, item.Title, string(item.Status), item.Favorite, item.Score, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("library: upsert item: %w", err)
	}
	return nil
}

// ListItems returns all of a user's items, most recently updated first.
func (s *Store) ListItems(ctx context.Context, userID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, mal_id, title, status, favorite, score, updated_at
		FROM library_items WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("library: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var status string
		if err := rows.Scan(&it.UserID, &it.MalID, &it.Title, &status, &it.Favorite, &it.Score, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("library: scan item: %w", err)
		}
		it.Status = Status(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteItem removes a user's entry for a title. Deleting a missing entry is
// not an error.
func (s *Store) DeleteItem(ctx context.Context, userID string, malID int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM library_items WHERE user_id = ? AND mal_id = ?`, userID, malID)
	if err != nil {
		return fmt.Errorf("library: delete item: %w", err)
	}
	return nil
}

// AddReview stores a new review and returns it with its generated id.
func (s *Store) AddReview(ctx context.Context, r Review) (*Review, error) {
	if r.UserID == "" || r.MalID <= 0 {
		return nil, fmt.Errorf("library: user id and mal id are required")
	}
	if r.Rating < 1 || r.Rating > 10 {
		return nil, fmt.Errorf("library: rating must be between 1 and 10")
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, mal_id, rating, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.MalID, r.Rating, r.Body, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("library: add review: %w", err)
	}
	return &r, nil
}

// ListReviews returns the reviews for a title, newest first.
func (s *Store) ListReviews(ctx context.Context, malID int) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, mal_id, rating, body, created_at
		FROM reviews WHERE mal_id = ? ORDER BY created_at DESC`, malID)
	if err != nil {
		return nil, fmt.Errorf("library: list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.MalID, &r.Rating, &r.Body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("library: scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
