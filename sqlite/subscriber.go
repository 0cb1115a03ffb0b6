package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gitmesh/newsletter"
)

type subscriberStore struct {
	db *DB
}

// NewSubscriberStore returns a SQLite-backed subscriber store
func NewSubscriberStore(db *DB) newsletter.SubscriberStore {
	return &subscriberStore{
		db: db,
	}
}

// Find finds a subscriber by email; (nil, nil) when absent
func (ss *subscriberStore) Find(email string) (*newsletter.Subscriber, error) {
	row := ss.db.sqlDB.QueryRow(
		`SELECT email, name, subscribed_at, confirmed, tags, unsubscribe_token FROM subscribers WHERE email = ?`,
		email,
	)

	s, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find by email %s: %w", email, err)
	}
	return s, nil
}

// Upsert inserts or overwrites the record matched by email
func (ss *subscriberStore) Upsert(s *newsletter.Subscriber) error {
	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = ss.db.sqlDB.Exec(
		`INSERT INTO subscribers (email, name, subscribed_at, confirmed, tags, unsubscribe_token)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			subscribed_at = excluded.subscribed_at,
			confirmed = excluded.confirmed,
			tags = excluded.tags,
			unsubscribe_token = excluded.unsubscribe_token`,
		s.Email, s.Name, s.SubscribedAt, s.Confirmed, string(tags), s.UnsubscribeToken,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}
	return nil
}

// Delete removes the record; reports not_found when absent
func (ss *subscriberStore) Delete(email string) error {
	res, err := ss.db.sqlDB.Exec(`DELETE FROM subscribers WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newsletter.Errorf(newsletter.ErrNotFound, "subscriber %s not found", email)
	}
	return nil
}

// List returns subscribers passing the filter. The confirmed flag narrows
// the query; tag containment and text search are applied in memory since
// tags live in a JSON column.
func (ss *subscriberStore) List(filter newsletter.SubscriberFilter) ([]newsletter.Subscriber, error) {
	query := `SELECT email, name, subscribed_at, confirmed, tags, unsubscribe_token FROM subscribers`
	args := []interface{}{}
	if filter.Confirmed != nil {
		query += ` WHERE confirmed = ?`
		args = append(args, *filter.Confirmed)
	}

	rows, err := ss.db.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var matched []newsletter.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if filter.Match(s) {
			matched = append(matched, *s)
		}
	}

	return matched, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscriber(row scanner) (*newsletter.Subscriber, error) {
	var (
		s    newsletter.Subscriber
		tags string
	)
	if err := row.Scan(&s.Email, &s.Name, &s.SubscribedAt, &s.Confirmed, &tags, &s.UnsubscribeToken); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return &s, nil
}
