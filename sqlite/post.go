package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gitmesh/newsletter"
)

// PostStore is a SQLite-backed post metadata store. It implements
// newsletter.PostService and additionally supports writes for content sync.
type PostStore struct {
	db *DB
}

var _ newsletter.PostService = (*PostStore)(nil)

// NewPostStore returns a SQLite-backed post metadata store
func NewPostStore(db *DB) *PostStore {
	return &PostStore{
		db: db,
	}
}

// FindByIDs resolves post metadata for the given identifiers. Unknown IDs
// are skipped rather than failing the whole campaign.
func (ps *PostStore) FindByIDs(ids []string) ([]newsletter.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := ps.db.sqlDB.Query(
		fmt.Sprintf(`SELECT id, title, author, excerpt, url, published FROM posts WHERE id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Recent returns the newest posts by publication date
func (ps *PostStore) Recent(limit int) ([]newsletter.Post, error) {
	query := `SELECT id, title, author, excerpt, url, published FROM posts ORDER BY published DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := ps.db.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Upsert stores post metadata (used by content sync)
func (ps *PostStore) Upsert(p *newsletter.Post) error {
	_, err := ps.db.sqlDB.Exec(
		`INSERT INTO posts (id, title, author, excerpt, url, published)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			excerpt = excluded.excerpt,
			url = excluded.url,
			published = excluded.published`,
		p.ID, p.Title, p.Author, p.Excerpt, p.URL, p.Published,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}
	return nil
}

func scanPosts(rows *sql.Rows) ([]newsletter.Post, error) {
	var posts []newsletter.Post
	for rows.Next() {
		var p newsletter.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Author, &p.Excerpt, &p.URL, &p.Published); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
