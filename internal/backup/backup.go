// Package backup creates and restores snapshots of the server database.
//
// Snapshots use Badger's native backup stream, written to timestamped
// files in a backup directory. They cover everything the store holds:
// users, sessions, ebooks and selection slots. The activity catalog is
// not included since it is rebuilt from the manifest by the ingest job.
package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kidobra/kidobra-server/internal/store"
)

const snapshotSuffix = ".badger.gz"

// Service creates, lists and restores database snapshots.
type Service struct {
	store     *store.Store
	backupDir string
	logger    *slog.Logger
}

// NewService creates a backup service writing snapshots under backupDir.
func NewService(s *store.Store, backupDir string, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Info describes one snapshot on disk.
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Create writes a new snapshot and returns its descriptor.
func (s *Service) Create(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now().UTC()
	id := now.Format("20060102-150405")
	path := filepath.Join(s.backupDir, id+snapshotSuffix)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create snapshot file: %w", err)
	}

	gz := gzip.NewWriter(f)
	if _, err := s.store.Backup(gz); err != nil {
		gz.Close()
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("backup stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ID:        id,
		Path:      path,
		Size:      stat.Size(),
		CreatedAt: now,
	}

	if s.logger != nil {
		s.logger.Info("snapshot created",
			"id", info.ID,
			"size", info.Size,
		)
	}

	return info, nil
}

// List returns all snapshots in the backup directory, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		id := strings.TrimSuffix(name, snapshotSuffix)
		createdAt, err := time.Parse("20060102-150405", id)
		if err != nil {
			continue // not one of ours
		}

		infos = append(infos, Info{
			ID:        id,
			Path:      filepath.Join(s.backupDir, name),
			Size:      fi.Size(),
			CreatedAt: createdAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}

// Restore loads the snapshot with the given id into the store.
// The server must not be running against the same database.
func (s *Service) Restore(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.backupDir, id+snapshotSuffix)
	f, err := os.Open(path) //#nosec G304 -- id is caller-chosen from List output
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	defer gz.Close()

	if err := s.store.LoadBackup(gz); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("snapshot restored", "id", id)
	}

	return nil
}

// Delete removes the snapshot with the given id.
func (s *Service) Delete(id string) error {
	return os.Remove(filepath.Join(s.backupDir, id+snapshotSuffix))
}
