package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Selection slots remember which ebook a user last selected on a given
// device. The slot stores only the ebook id; the ebook itself is always
// re-read so a stale slot can never resurrect deleted state.
const selectionPrefix = "selection:"

func selectionKey(userID, deviceID string) []byte {
	return []byte(selectionPrefix + userID + ":" + deviceID)
}

// SetSelection records ebookID as the selected ebook for (user, device).
func (s *Store) SetSelection(_ context.Context, userID, deviceID, ebookID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(selectionKey(userID, deviceID), []byte(ebookID))
	})
}

// GetSelection returns the selected ebook id for (user, device).
// Returns ErrNotFound when no selection is recorded.
func (s *Store) GetSelection(_ context.Context, userID, deviceID string) (string, error) {
	var ebookID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(selectionKey(userID, deviceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ebookID = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get selection: %w", err)
	}
	return ebookID, nil
}

// ClearSelection removes the selection slot for (user, device).
// Idempotent - no error when no selection is recorded.
func (s *Store) ClearSelection(_ context.Context, userID, deviceID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(selectionKey(userID, deviceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ClearUserSelections removes every device's selection slot for a user.
// Used on sign-out and account deletion.
func (s *Store) ClearUserSelections(_ context.Context, userID string) error {
	prefix := []byte(selectionPrefix + userID + ":")

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list selections: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// ClearSelectionsOfEbook removes every selection slot, for any user and
// device, that points at ebookID. Called when an ebook is deleted.
func (s *Store) ClearSelectionsOfEbook(_ context.Context, ebookID string) error {
	prefix := []byte(selectionPrefix)

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				if string(val) == ebookID {
					keys = append(keys, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan selections: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}
