package bolt

import (
	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"

	"github.com/gitmesh/newsletter"
)

type subscriberStore struct {
	db *DB
}

// NewSubscriberStore returns a storm-backed subscriber store
func NewSubscriberStore(db *DB) newsletter.SubscriberStore {
	return &subscriberStore{
		db: db,
	}
}

// Find finds a subscriber by email; (nil, nil) when absent
func (ss *subscriberStore) Find(email string) (*newsletter.Subscriber, error) {
	var s newsletter.Subscriber
	if err := ss.db.stormDB.One("Email", email, &s); err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Errorf("failed to find by email: %v", err)
	}

	return &s, nil
}

// Upsert inserts or overwrites the record matched by email
func (ss *subscriberStore) Upsert(s *newsletter.Subscriber) error {
	if err := ss.db.stormDB.Save(s); err != nil {
		return errors.Errorf("failed to save: %v", err)
	}

	return nil
}

// Delete removes the record; reports not_found when absent
func (ss *subscriberStore) Delete(email string) error {
	s, err := ss.Find(email)
	if err != nil {
		return err
	}
	if s == nil {
		return newsletter.Errorf(newsletter.ErrNotFound, "subscriber %s not found", email)
	}

	if err := ss.db.stormDB.DeleteStruct(s); err != nil {
		return errors.Errorf("failed to delete: %v", err)
	}

	return nil
}

// List returns subscribers passing the filter. Tag containment cannot be
// expressed as a storm index query, so filtering happens in memory.
func (ss *subscriberStore) List(filter newsletter.SubscriberFilter) ([]newsletter.Subscriber, error) {
	var all []newsletter.Subscriber
	if err := ss.db.stormDB.All(&all); err != nil {
		return nil, errors.Errorf("failed to list subscribers: %v", err)
	}

	matched := make([]newsletter.Subscriber, 0, len(all))
	for _, s := range all {
		if filter.Match(&s) {
			matched = append(matched, s)
		}
	}

	return matched, nil
}
