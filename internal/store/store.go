// Package store provides a thin bbolt wrapper for pocketdash's local state.
//
// The backend owns todos, metrics and history. Locally we keep only what the
// client itself needs between runs: the remote-shell session and an
// opt-in log of raw status snapshots written by `status --store`.
//
// Buckets:
//
//	session   — terminal token and working directory
//	statuslog — raw /api/status bodies keyed by RFC 3339 fetch time
//	_meta     — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/pocketdash/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketSession   = []byte("session")
	bucketStatusLog = []byte("statuslog")
	bucketInternal  = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"session", "statuslog"}

var (
	keyToken = []byte("token")
	keyCwd   = []byte("cwd")
)

// statusKeyLayout sorts lexically in time order.
const statusKeyLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketStatusLog, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Terminal Session ─────────────────────────────────────────────────────────

// LoadSession returns the stored terminal token and working directory.
// Missing keys return empty strings.
func (s *Store) LoadSession() (token, cwd string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		token = string(b.Get(keyToken))
		cwd = string(b.Get(keyCwd))
		return nil
	})
	return token, cwd, err
}

// SaveSession stores the terminal token and working directory.
func (s *Store) SaveSession(token, cwd string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyCwd, []byte(cwd))
	})
}

// ClearToken removes the stored token and keeps the working directory.
func (s *Store) ClearToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(keyToken)
	})
}

// ─── Status Log ───────────────────────────────────────────────────────────────

// StatusEntry is one logged status snapshot.
type StatusEntry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Raw       json.RawMessage `json:"snapshot"`
}

// Snapshot decodes the logged body.
func (e StatusEntry) Snapshot() (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(e.Raw, &snap); err != nil {
		return snap, fmt.Errorf("decoding logged snapshot: %w", err)
	}
	return snap, nil
}

// PutStatus appends a raw status body fetched at at.
func (s *Store) PutStatus(raw []byte, at time.Time) error {
	if !json.Valid(raw) {
		return fmt.Errorf("status body is not valid JSON")
	}
	entry := StatusEntry{FetchedAt: at.UTC(), Raw: raw}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding status entry: %w", err)
	}
	key := []byte(at.UTC().Format(statusKeyLayout))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStatusLog).Put(key, b)
	})
}

// ListStatus returns logged snapshots in time order. A zero since returns
// everything; limit > 0 keeps only the newest limit entries.
func (s *Store) ListStatus(since time.Time, limit int) ([]StatusEntry, error) {
	var entries []StatusEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketStatusLog).Cursor()
		var k, v []byte
		if since.IsZero() {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(since.UTC().Format(statusKeyLayout)))
		}
		for ; k != nil; k, v = c.Next() {
			var e StatusEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding status entry %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// PruneStatus deletes all but the newest keep entries and returns how many
// were removed.
func (s *Store) PruneStatus(keep int) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStatusLog)
		excess := b.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && removed < excess; k, _ = c.First() {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all user buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q (valid: %v)", name, AllBuckets)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file to reclaim free pages,
// then swaps it into place and reopens it. It returns the file sizes before
// and after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	if fi, err := os.Stat(path); err == nil {
		before = fi.Size()
	}

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("opening compaction target: %w", err)
	}
	if err := bolt.Compact(dst, s.db, 1<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return before, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, err
	}
	if err := s.db.Close(); err != nil {
		return before, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return before, 0, fmt.Errorf("replacing db: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("reopening db: %w", err)
	}
	s.db = db
	if fi, err := os.Stat(path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}
