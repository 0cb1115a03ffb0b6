package bolt

import (
	"sort"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"

	"github.com/gitmesh/newsletter"
)

// PostStore is a storm-backed post metadata store. It implements
// newsletter.PostService and additionally supports writes for content sync.
type PostStore struct {
	db *DB
}

var _ newsletter.PostService = (*PostStore)(nil)

// NewPostStore returns a storm-backed post metadata store
func NewPostStore(db *DB) *PostStore {
	return &PostStore{
		db: db,
	}
}

// FindByIDs resolves post metadata for the given identifiers. Unknown IDs
// are skipped rather than failing the whole campaign.
func (ps *PostStore) FindByIDs(ids []string) ([]newsletter.Post, error) {
	posts := make([]newsletter.Post, 0, len(ids))
	for _, id := range ids {
		var p newsletter.Post
		if err := ps.db.stormDB.One("ID", id, &p); err != nil {
			if err == storm.ErrNotFound {
				continue
			}
			return nil, errors.Errorf("failed to find post %s: %v", id, err)
		}
		posts = append(posts, p)
	}

	return posts, nil
}

// Recent returns the newest posts by publication date
func (ps *PostStore) Recent(limit int) ([]newsletter.Post, error) {
	var all []newsletter.Post
	if err := ps.db.stormDB.All(&all); err != nil {
		return nil, errors.Errorf("failed to list posts: %v", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

// Upsert stores post metadata (used by content sync)
func (ps *PostStore) Upsert(p *newsletter.Post) error {
	if err := ps.db.stormDB.Save(p); err != nil {
		return errors.Errorf("failed to save post: %v", err)
	}

	return nil
}
