package internals

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Cache is the Signature Cache of spec.md §4.3: a persistent key/value
// store mapping (directory-path, filename, stat-identity) to
// (partial-digest, full-digest), backed by an embedded SQLite database.
// Grounded on the indexing command of the `dihedron/dedup` example
// (database/sql + github.com/mattn/go-sqlite3), with schema migrations
// added via golang-migrate so the cache can be versioned forward as the
// digest algorithm or schema changes (design note: "cache is versioned
// to invalidate stale entries").
type Cache struct {
	db       *sql.DB
	ReadOnly bool

	mu sync.Mutex
	tx *sql.Tx
}

// DefaultCacheDir returns the platform-conventional cache directory for
// this tool: ${XDG_CACHE_HOME:-$HOME/.cache}/fdupes (spec.md §6).
func DefaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "fdupes"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "fdupes"), nil
}

// OpenCache opens (creating if absent) the cache database at dir/cache.db.
// dir is created with permissions 0700 if it doesn't already exist.
// readOnly disables every mutating operation; Load still works.
func OpenCache(dir string, readOnly bool) (*Cache, error) {
	if !readOnly {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 + WAL: one writer at a time, no nested transactions

	if !readOnly {
		if err := migrateCache(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate cache schema: %w", err)
		}
	}

	return &Cache{db: db, ReadOnly: readOnly}, nil
}

func migrateCache(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	target, err := sqlite3migrate.WithInstance(db, &sqlite3migrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", target)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close releases the backing database. Guaranteed to be safe to call on
// every exit path, including after a cancelled run.
func (c *Cache) Close() error {
	return c.db.Close()
}

// BeginTransaction opens a single exclusive transaction, bracketing a
// batch of writes for throughput. The core never nests transactions: the
// scan runs under one transaction, and each interactive deletion set
// commits under its own (spec.md §4.3, §4.8).
func (c *Cache) BeginTransaction() error {
	if c.ReadOnly {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return fmt.Errorf("cache: transaction already open")
	}
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// CommitTransaction commits the open transaction, if any.
func (c *Cache) CommitTransaction() error {
	if c.ReadOnly {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// RollbackTransaction discards the open transaction, if any. Used when the
// scan fails with an error other than cancellation; a cancelled scan
// commits what it already wrote.
func (c *Cache) RollbackTransaction() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// execer returns the open transaction if one exists, else the db handle
// itself, so every write path works whether or not a batch is open.
func (c *Cache) execer() interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// directoryID returns the id of the directories row for canonicalDir,
// creating it (and any ancestor rows, per parent-id) if absent and the
// cache is writable. Returns (0, false, nil) if the directory is not yet
// cached and the cache is read-only.
func (c *Cache) directoryID(canonicalDir string) (int64, bool, error) {
	row := c.execer().QueryRow(`SELECT id FROM directories WHERE canonical_path = ?`, canonicalDir)
	var id int64
	if err := row.Scan(&id); err == nil {
		return id, true, nil
	} else if err != sql.ErrNoRows {
		return 0, false, err
	}

	if c.ReadOnly {
		return 0, false, nil
	}

	var parentID sql.NullInt64
	parent := filepath.Dir(canonicalDir)
	if parent != canonicalDir {
		pid, ok, err := c.directoryID(parent)
		if err != nil {
			return 0, false, err
		}
		if ok {
			parentID = sql.NullInt64{Int64: pid, Valid: true}
		}
	}

	res, err := c.execer().Exec(
		`INSERT INTO directories(parent_id, canonical_path) VALUES (?, ?)`,
		parentID, canonicalDir,
	)
	if err != nil {
		return 0, false, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Load returns cached digests for record, honoring the full key match
// spec.md §4.3 requires: directory-path, filename, size, inode, and
// mtime (seconds + nanos) must all agree, or this is a cache miss.
func (c *Cache) Load(record *FileRecord) (partial, full []byte, ok bool) {
	dir, file := filepath.Dir(record.Path), filepath.Base(record.Path)
	dirID, found, err := c.directoryID(dir)
	if err != nil || !found {
		return nil, nil, false
	}

	row := c.execer().QueryRow(
		`SELECT size, inode, mtime_sec, mtime_nsec, partial_digest, full_digest
		   FROM hashes WHERE directory_id = ? AND filename = ?`,
		dirID, file,
	)

	var size, inode, mtimeSec int64
	var mtimeNsec int32
	var partialDigest, fullDigest []byte
	if err := row.Scan(&size, &inode, &mtimeSec, &mtimeNsec, &partialDigest, &fullDigest); err != nil {
		return nil, nil, false
	}

	if size != record.Size || uint64(inode) != record.Inode ||
		mtimeSec != record.MtimeSec || mtimeNsec != record.MtimeNsec {
		return nil, nil, false
	}
	return partialDigest, fullDigest, true
}

// Save upserts the digests computed for record, keyed by (directory-id,
// filename). A no-op in read-only mode.
func (c *Cache) Save(record *FileRecord, partial, full []byte) error {
	if c.ReadOnly {
		return nil
	}
	dir, file := filepath.Dir(record.Path), filepath.Base(record.Path)
	dirID, _, err := c.directoryID(dir)
	if err != nil {
		return err
	}

	_, err = c.execer().Exec(
		`INSERT INTO hashes(directory_id, filename, size, inode, mtime_sec, mtime_nsec, partial_digest, full_digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(directory_id, filename) DO UPDATE SET
		   size=excluded.size, inode=excluded.inode,
		   mtime_sec=excluded.mtime_sec, mtime_nsec=excluded.mtime_nsec,
		   partial_digest=excluded.partial_digest, full_digest=excluded.full_digest`,
		dirID, file, record.Size, int64(record.Inode), record.MtimeSec, record.MtimeNsec, partial, full,
	)
	return err
}

// DeleteForPath removes the cache entry for canonicalPath after a
// successful deletion. A no-op in read-only mode.
func (c *Cache) DeleteForPath(canonicalPath string) error {
	if c.ReadOnly {
		return nil
	}
	dir, file := filepath.Dir(canonicalPath), filepath.Base(canonicalPath)
	dirID, found, err := c.directoryID(dir)
	if err != nil || !found {
		return err
	}
	_, err = c.execer().Exec(`DELETE FROM hashes WHERE directory_id = ? AND filename = ?`, dirID, file)
	return err
}

// PruneDirectory removes cached file entries beneath canonicalDir whose
// files no longer exist, and removes canonicalDir's own row if it is no
// longer a directory. Called by the Enumerator before descending into a
// directory (spec.md §4.1).
func (c *Cache) PruneDirectory(canonicalDir string) error {
	if c.ReadOnly {
		return nil
	}

	info, statErr := os.Stat(canonicalDir)
	if statErr != nil || !info.IsDir() {
		_, err := c.execer().Exec(`DELETE FROM directories WHERE canonical_path = ?`, canonicalDir)
		return err
	}

	dirID, found, err := c.directoryID(canonicalDir)
	if err != nil || !found {
		return err
	}

	rows, err := c.execer().(interface {
		Query(query string, args ...any) (*sql.Rows, error)
	}).Query(`SELECT filename FROM hashes WHERE directory_id = ?`, dirID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return err
		}
		if _, err := os.Lstat(filepath.Join(canonicalDir, filename)); err != nil {
			stale = append(stale, filename)
		}
	}

	for _, filename := range stale {
		if _, err := c.execer().Exec(`DELETE FROM hashes WHERE directory_id = ? AND filename = ?`, dirID, filename); err != nil {
			return err
		}
	}
	return nil
}

// Prune iterates every directory row: rows whose canonical path no
// longer exists, or is no longer a directory, are deleted outright
// (cascading to their hash rows); surviving directories have their
// stale file entries removed via PruneDirectory (spec.md §4.3).
func (c *Cache) Prune() error {
	if c.ReadOnly {
		return nil
	}
	rows, err := c.db.Query(`SELECT canonical_path FROM directories`)
	if err != nil {
		return err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		paths = append(paths, p)
	}
	rows.Close()

	for _, p := range paths {
		if err := c.PruneDirectory(p); err != nil {
			return err
		}
	}
	return nil
}

// Clear wipes every cached directory and hash entry.
func (c *Cache) Clear() error {
	if c.ReadOnly {
		return nil
	}
	if _, err := c.db.Exec(`DELETE FROM hashes`); err != nil {
		return err
	}
	_, err := c.db.Exec(`DELETE FROM directories`)
	return err
}

// Vacuum reclaims unused storage in the backing database file.
func (c *Cache) Vacuum() error {
	if c.ReadOnly {
		return nil
	}
	_, err := c.db.Exec(`VACUUM`)
	return err
}
