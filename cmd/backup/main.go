// Package main provides a snapshot tool for the server database.
//
// The server must be stopped while this tool runs: Badger allows only
// one process to hold the database.
//
// Usage:
//
//	go run ./cmd/backup create
//	go run ./cmd/backup list
//	go run ./cmd/backup restore 20260901-120000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kidobra/kidobra-server/internal/backup"
	"github.com/kidobra/kidobra-server/internal/store"
)

var (
	dataPath  = flag.String("data-path", os.ExpandEnv("$HOME/Kidobra/data"), "Base path for data storage")
	backupDir = flag.String("backup-dir", "", "Snapshot directory (default: {data-path}/backups)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: backup [flags] create|list|restore <id>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	dir := *backupDir
	if dir == "" {
		dir = filepath.Join(*dataPath, "backups")
	}

	s, err := store.New(filepath.Join(*dataPath, "db"), nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	svc := backup.NewService(s, dir, nil)
	ctx := context.Background()

	switch flag.Arg(0) {
	case "create":
		info, err := svc.Create(ctx)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		fmt.Printf("Created %s (%d bytes)\n", info.ID, info.Size)

	case "list":
		infos, err := svc.List()
		if err != nil {
			log.Fatalf("List failed: %v", err)
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots found")
			return
		}
		for _, info := range infos {
			fmt.Printf("%s  %10d bytes  %s\n", info.ID, info.Size, info.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		}

	case "restore":
		if flag.NArg() < 2 {
			log.Fatal("restore requires a snapshot id (see: backup list)")
		}
		if err := svc.Restore(ctx, flag.Arg(1)); err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		fmt.Printf("Restored %s\n", flag.Arg(1))

	default:
		log.Fatalf("Unknown command %q", flag.Arg(0))
	}
}
