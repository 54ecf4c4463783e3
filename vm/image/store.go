package image

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/glox/vm"
)

var log = commonlog.GetLogger("glox.image")

// ErrNotFound indicates the requested image is not in the store.
var ErrNotFound = errors.New("image not found")

// ---------------------------------------------------------------------------
// ContentStore: in-memory content-addressed index
// ---------------------------------------------------------------------------

// ContentStore indexes compiled functions by their content hash. It is
// the runtime-local cache in front of the persistent Store.
type ContentStore struct {
	mu        sync.RWMutex
	functions map[[32]byte]*vm.Function
}

// NewContentStore creates an empty content store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		functions: make(map[[32]byte]*vm.Function),
	}
}

// Index adds a function to the store, keyed by its content hash.
func (cs *ContentStore) Index(f *vm.Function) ([32]byte, error) {
	h, err := ContentHash(f)
	if err != nil {
		return [32]byte{}, err
	}
	cs.mu.Lock()
	cs.functions[h] = f
	cs.mu.Unlock()
	return h, nil
}

// Lookup returns the function for the given hash, or nil.
func (cs *ContentStore) Lookup(h [32]byte) *vm.Function {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.functions[h]
}

// Len returns the number of indexed functions.
func (cs *ContentStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.functions)
}

// ---------------------------------------------------------------------------
// Store: SQLite-backed persistent image store
// ---------------------------------------------------------------------------

// Store persists function images in a SQLite database, keyed by content
// hash. Safe for concurrent use through database/sql's pooling.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if needed) the image database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("image: opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("image: setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash BLOB PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("image: creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Put serializes f and stores it, returning its content hash. Storing
// the same function twice is a no-op.
func (s *Store) Put(f *vm.Function) ([32]byte, error) {
	data, err := MarshalFunction(f)
	if err != nil {
		return [32]byte{}, err
	}
	h, err := ContentHash(f)
	if err != nil {
		return [32]byte{}, err
	}
	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO images (hash, name, data) VALUES (?, ?, ?)",
		h[:], f.Name.String(), data,
	)
	if err != nil {
		return [32]byte{}, fmt.Errorf("image: storing %s: %w", f.Stringify(), err)
	}
	log.Infof("stored %s as %s (%d bytes)", f.Stringify(), hex.EncodeToString(h[:8]), len(data))
	return h, nil
}

// Get loads the function with the given hash, interning its strings
// into table. Returns ErrNotFound if the hash is absent.
func (s *Store) Get(h [32]byte, table *vm.StringTable) (*vm.Function, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE hash = ?", h[:]).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image: %s: %w", hex.EncodeToString(h[:8]), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("image: loading %s: %w", hex.EncodeToString(h[:8]), err)
	}
	return UnmarshalFunction(data, table)
}

// Entries lists the stored images as (hash, name) pairs.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT hash, name FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("image: listing images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var raw []byte
		var e Entry
		if err := rows.Scan(&raw, &e.Name); err != nil {
			return nil, fmt.Errorf("image: scanning row: %w", err)
		}
		copy(e.Hash[:], raw)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entry is one stored image's identity.
type Entry struct {
	Hash [32]byte
	Name string
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
