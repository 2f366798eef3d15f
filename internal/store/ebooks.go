package store

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kidobra/kidobra-server/internal/domain"
)

const (
	ebookPrefix        = "ebook:"
	ebookByOwnerPrefix = "idx:ebooks:owner:" // For listing a user's ebooks
)

// CreateEbook persists a new ebook and its owner index entry.
func (s *Store) CreateEbook(_ context.Context, ebook *domain.Ebook) error {
	key := []byte(ebookPrefix + ebook.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check ebook exists: %w", err)
	}
	if exists {
		return ErrAlreadyExists
	}

	ownerIndexKey := []byte(ebookByOwnerPrefix + ebook.OwnerID + ":" + ebook.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(ebook)
		if err != nil {
			return fmt.Errorf("marshal ebook: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		return txn.Set(ownerIndexKey, []byte{})
	})
}

// GetEbook retrieves an ebook by ID.
func (s *Store) GetEbook(_ context.Context, id string) (*domain.Ebook, error) {
	key := []byte(ebookPrefix + id)

	var ebook domain.Ebook
	if err := s.get(key, &ebook); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ebook: %w", err)
	}

	return &ebook, nil
}

// ListEbooksByOwner returns all ebooks owned by a user, newest first.
func (s *Store) ListEbooksByOwner(ctx context.Context, ownerID string) ([]*domain.Ebook, error) {
	prefix := []byte(ebookByOwnerPrefix + ownerID + ":")
	var ebooks []*domain.Ebook

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // We only need keys

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// Key format: idx:ebooks:owner:ownerID:ebookID
			key := string(it.Item().Key())
			ebookID := key[strings.LastIndex(key, ":")+1:]
			if ebookID == "" {
				continue
			}

			ebook, err := s.GetEbook(ctx, ebookID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // Dangling index entry
				}
				return err
			}

			ebooks = append(ebooks, ebook)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list ebooks by owner: %w", err)
	}

	sort.Slice(ebooks, func(i, j int) bool {
		return ebooks[i].CreatedAt.After(ebooks[j].CreatedAt)
	})

	return ebooks, nil
}

// UpdateEbook replaces a stored ebook. Owner and ID are immutable, so
// the owner index entry never moves.
func (s *Store) UpdateEbook(_ context.Context, ebook *domain.Ebook) error {
	key := []byte(ebookPrefix + ebook.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check ebook exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.set(key, ebook); err != nil {
		return fmt.Errorf("update ebook: %w", err)
	}
	return nil
}

// DeleteEbook removes an ebook and its owner index entry.
// Idempotent - no error if the ebook does not exist.
func (s *Store) DeleteEbook(_ context.Context, id string) error {
	key := []byte(ebookPrefix + id)

	var ebook domain.Ebook
	if err := s.get(key, &ebook); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Already gone
		}
		return fmt.Errorf("get ebook for deletion: %w", err)
	}

	ownerIndexKey := []byte(ebookByOwnerPrefix + ebook.OwnerID + ":" + id)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key); err != nil {
			return err
		}

		if err := txn.Delete(ownerIndexKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return nil
	})
}

// mutateMaxRetries bounds how many times a conflicted ebook mutation is
// retried before giving up.
const mutateMaxRetries = 10

// mutateEbook runs fn against the current stored ebook inside a single
// write transaction and persists the result. Badger aborts conflicting
// read-modify-write transactions rather than serializing them, so the
// whole transaction is retried against fresh state on ErrConflict.
func (s *Store) mutateEbook(id string, fn func(*domain.Ebook) error) error {
	var err error
	for range mutateMaxRetries {
		err = s.mutateEbookTxn(id, fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("mutate ebook: %w", err)
}

func (s *Store) mutateEbookTxn(id string, fn func(*domain.Ebook) error) error {
	key := []byte(ebookPrefix + id)

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get ebook: %w", err)
		}

		stored, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read ebook: %w", err)
		}

		var ebook domain.Ebook
		if err := json.Unmarshal(stored, &ebook); err != nil {
			return fmt.Errorf("unmarshal ebook: %w", err)
		}

		if err := fn(&ebook); err != nil {
			return err
		}

		data, err := json.Marshal(&ebook)
		if err != nil {
			return fmt.Errorf("marshal ebook: %w", err)
		}

		// No-op mutations commit read-only so they cannot conflict.
		if bytes.Equal(data, stored) {
			return nil
		}

		return txn.Set(key, data)
	})
}

// AddActivityToEbook appends an activity to the ebook's sequence inside a
// transaction. Returns false when the activity was already present, which
// is not an error.
func (s *Store) AddActivityToEbook(_ context.Context, ebookID string, activity domain.Activity) (bool, error) {
	added := false
	err := s.mutateEbook(ebookID, func(e *domain.Ebook) error {
		added = e.AddActivity(activity)
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// RemoveActivityFromEbook removes an activity from the ebook's sequence.
// Returns false when the activity was not in the ebook.
func (s *Store) RemoveActivityFromEbook(_ context.Context, ebookID, activityID string) (bool, error) {
	removed := false
	err := s.mutateEbook(ebookID, func(e *domain.Ebook) error {
		removed = e.RemoveActivity(activityID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ReorderEbookActivities rewrites the ebook's sequence in the order given
// by activityIDs. The ids must be a permutation of the stored sequence;
// anything else fails with ErrInvalidInput and leaves the ebook unchanged.
func (s *Store) ReorderEbookActivities(_ context.Context, ebookID string, activityIDs []string) error {
	return s.mutateEbook(ebookID, func(e *domain.Ebook) error {
		if err := e.Reorder(activityIDs); err != nil {
			return ErrInvalidInput.WithCause(err)
		}
		return nil
	})
}

// RenameEbook updates the ebook's display name.
func (s *Store) RenameEbook(_ context.Context, ebookID, name string) error {
	return s.mutateEbook(ebookID, func(e *domain.Ebook) error {
		e.Name = name
		return nil
	})
}
