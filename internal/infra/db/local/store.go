// Package local implements the storage gateway on an embedded
// BadgerDB. Each collection lives under one fixed key as a JSON blob
// that is re-serialized whole on every write — no partial updates, no
// indexing. Single-user mode: two concurrent writers can lose an
// update (last writer wins), which is accepted here.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ngocminh/chudau-catalog/internal/domain/ai"
	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
)

const (
	keyRecords   = "records"
	keyCommunity = "community"
	keyAPIKey    = "api_key"
	keyModels    = "models"
)

type Store struct {
	db *badger.DB

	// Now is a test hook; ids are ms-since-epoch timestamps, so tests
	// pin it to get deterministic ids.
	Now func() time.Time
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, Now: time.Now}, nil
}

// OpenInMemory avoids disk I/O; used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, Now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) get(key string, out any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

//
// ==== Repository ====
//

func (s *Store) Records(ctx context.Context) ([]*domain.Record, error) {
	var out []*domain.Record
	if _, err := s.get(keyRecords, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecord prepends so the collection stays newest-first. The id
// is the current timestamp in milliseconds; same-ms collisions are an
// accepted weakness of this mode.
func (s *Store) CreateRecord(ctx context.Context, f domain.NewRecordFields) (domain.RecordID, error) {
	existing, err := s.Records(ctx)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	rec := &domain.Record{
		ID:          domain.RecordID(now.UnixMilli()),
		Title:       f.Title,
		Category:    f.Category,
		Status:      f.Status,
		Priority:    f.Priority,
		Description: f.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	updated := append([]*domain.Record{rec}, existing...)
	if err := s.set(keyRecords, updated); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// Categories are fixed in local mode; there is no creation path.
func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	return domain.SeedCategories(), nil
}

func (s *Store) Community(ctx context.Context) ([]*domain.CommunityPost, error) {
	var out []*domain.CommunityPost
	if _, err := s.get(keyCommunity, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateCommunityPost(ctx context.Context, f domain.NewPostFields) (int64, error) {
	existing, err := s.Community(ctx)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	post := &domain.CommunityPost{
		ID:        now.UnixMilli(),
		Title:     f.Title,
		Content:   f.Content,
		Author:    f.Author,
		ImageURL:  f.ImageURL,
		CreatedAt: now,
	}
	updated := append([]*domain.CommunityPost{post}, existing...)
	if err := s.set(keyCommunity, updated); err != nil {
		return 0, err
	}
	return post.ID, nil
}

//
// ==== SettingsSource ====
//

// Load returns the configured credential and model list, falling back
// to the default models when none are stored.
func (s *Store) Load(ctx context.Context) (ai.Settings, error) {
	var out ai.Settings
	if _, err := s.get(keyAPIKey, &out.APIKey); err != nil {
		return ai.Settings{}, err
	}
	found, err := s.get(keyModels, &out.Models)
	if err != nil {
		return ai.Settings{}, err
	}
	if !found || len(out.Models) == 0 {
		out.Models = ai.DefaultModels()
	}
	return out, nil
}

// Save rejects an empty model list so the non-empty invariant holds at
// configuration time.
func (s *Store) Save(ctx context.Context, st ai.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.set(keyAPIKey, st.APIKey); err != nil {
		return err
	}
	return s.set(keyModels, st.Models)
}
