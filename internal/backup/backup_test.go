package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/backup"
	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/store"
)

func newTestStore(t *testing.T, dir string) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(dir, "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestBackup_CreateAndRestore(t *testing.T) {
	ctx := context.Background()

	tmpDir, err := os.MkdirTemp("", "backup-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	src := newTestStore(t, filepath.Join(tmpDir, "src"))

	user := &domain.User{ID: "user_1", Email: "maria@example.com", DisplayName: "Maria"}
	require.NoError(t, src.Users.Create(ctx, user.ID, user))

	ebook := &domain.Ebook{ID: "ebook_1", OwnerID: user.ID, Name: "Férias"}
	require.NoError(t, src.CreateEbook(ctx, ebook))

	backupDir := filepath.Join(tmpDir, "backups")
	info, err := backup.NewService(src, backupDir, nil).Create(ctx)
	require.NoError(t, err)
	assert.Positive(t, info.Size)

	// Restore into a fresh, empty store
	dst := newTestStore(t, filepath.Join(tmpDir, "dst"))
	require.NoError(t, backup.NewService(dst, backupDir, nil).Restore(ctx, info.ID))

	restoredUser, err := dst.Users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", restoredUser.Email)

	// Index keys travel with the snapshot
	byEmail, err := dst.Users.GetByIndex(ctx, "email", "MARIA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	restoredEbook, err := dst.GetEbook(ctx, ebook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Férias", restoredEbook.Name)
}

func TestBackup_ListNewestFirst(t *testing.T) {
	ctx := context.Background()

	tmpDir, err := os.MkdirTemp("", "backup-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	s := newTestStore(t, tmpDir)
	svc := backup.NewService(s, filepath.Join(tmpDir, "backups"), nil)

	// Empty directory lists cleanly
	infos, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, infos)

	first, err := svc.Create(ctx)
	require.NoError(t, err)

	infos, err = svc.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, first.ID, infos[0].ID)

	require.NoError(t, svc.Delete(first.ID))
	infos, err = svc.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}
