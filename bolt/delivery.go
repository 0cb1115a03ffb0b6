package bolt

import (
	"sort"

	"github.com/go-errors/errors"

	"github.com/gitmesh/newsletter"
)

type deliveryLogStore struct {
	db *DB
}

// NewDeliveryLogStore returns a storm-backed delivery audit log
func NewDeliveryLogStore(db *DB) newsletter.DeliveryLogStore {
	return &deliveryLogStore{
		db: db,
	}
}

// Append writes a new audit entry
func (ds *deliveryLogStore) Append(entry *newsletter.DeliveryLog) error {
	if err := ds.db.stormDB.Save(entry); err != nil {
		return errors.Errorf("failed to append delivery log: %v", err)
	}

	return nil
}

// List returns the most recent entries, newest first
func (ds *deliveryLogStore) List(limit int) ([]newsletter.DeliveryLog, error) {
	var all []newsletter.DeliveryLog
	if err := ds.db.stormDB.All(&all); err != nil {
		return nil, errors.Errorf("failed to list delivery logs: %v", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}
