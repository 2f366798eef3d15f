package store

import "io"

// Backup streams a full snapshot of the database to w using Badger's
// native backup format. Returns the version watermark of the snapshot.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	return s.db.Backup(w, 0)
}

// LoadBackup restores a snapshot previously written by Backup into the
// database. The store must not be serving traffic while loading.
func (s *Store) LoadBackup(r io.Reader) error {
	return s.db.Load(r, 16)
}
