// Package main provides a read-only inspection tool for the server database.
//
// Usage:
//
//	DB_PATH=~/Kidobra/data/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kidobra/kidobra-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Kidobra/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	userCount := 0
	sessionCount := 0
	selectionCount := 0
	ebookCount := 0
	totalActivities := 0
	shown := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "user:"):
				if !strings.HasPrefix(key, "user:idx:") {
					userCount++
				}

			case strings.HasPrefix(key, "session:"):
				sessionCount++

			case strings.HasPrefix(key, "selection:"):
				selectionCount++

			case strings.HasPrefix(key, "ebook:"):
				err := item.Value(func(val []byte) error {
					var ebook domain.Ebook
					if err := json.Unmarshal(val, &ebook); err != nil {
						return err
					}

					ebookCount++
					totalActivities += len(ebook.Activities)

					if shown < 5 {
						shown++
						fmt.Printf("Ebook: %s\n", ebook.Name)
						fmt.Printf("  ID: %s\n", ebook.ID)
						fmt.Printf("  Owner: %s\n", ebook.OwnerID)
						fmt.Printf("  Activities: %d\n", len(ebook.Activities))
						fmt.Println()
					}
					return nil
				})
				if err != nil {
					fmt.Printf("  (failed to decode %s: %v)\n", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Users:           %d\n", userCount)
	fmt.Printf("Sessions:        %d\n", sessionCount)
	fmt.Printf("Selection slots: %d\n", selectionCount)
	fmt.Printf("Ebooks:          %d\n", ebookCount)
	fmt.Printf("Ebook pages:     %d\n", totalActivities)
}
