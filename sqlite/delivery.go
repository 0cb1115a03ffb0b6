package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/gitmesh/newsletter"
)

type deliveryLogStore struct {
	db *DB
}

// NewDeliveryLogStore returns a SQLite-backed delivery audit log
func NewDeliveryLogStore(db *DB) newsletter.DeliveryLogStore {
	return &deliveryLogStore{
		db: db,
	}
}

// Append writes a new audit entry
func (ds *deliveryLogStore) Append(entry *newsletter.DeliveryLog) error {
	failures, err := json.Marshal(entry.Failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}
	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = ds.db.sqlDB.Exec(
		`INSERT INTO delivery_logs
			(id, timestamp, type, subject, recipient_count, success_count, failure_count, failures, tags, admin_user)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, entry.Type, entry.Subject,
		entry.RecipientCount, entry.SuccessCount, entry.FailureCount,
		string(failures), string(tags), entry.AdminUser,
	)
	if err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first
func (ds *deliveryLogStore) List(limit int) ([]newsletter.DeliveryLog, error) {
	query := `SELECT id, timestamp, type, subject, recipient_count, success_count, failure_count, failures, tags, admin_user
		FROM delivery_logs ORDER BY timestamp DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := ds.db.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []newsletter.DeliveryLog
	for rows.Next() {
		var (
			e        newsletter.DeliveryLog
			failures string
			tags     string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Subject,
			&e.RecipientCount, &e.SuccessCount, &e.FailureCount,
			&failures, &tags, &e.AdminUser); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &e.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
