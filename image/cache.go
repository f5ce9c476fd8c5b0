package image

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/freeze/compiler"
)

// ErrNotCached indicates no image is stored for a key.
var ErrNotCached = errors.New("image: not cached")

// Cache stores images in a SQLite database.
type Cache struct {
	db  *sql.DB
	mu  sync.Mutex
	log commonlog.Logger
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		key TEXT PRIMARY KEY,
		grammar TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, log: commonlog.GetLogger("freeze.image")}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put stores img under its source hash, replacing any previous entry.
func (c *Cache) Put(img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO images (key, grammar, data) VALUES (?, ?, ?)",
		img.SourceHash, img.Grammar, data,
	)
	if err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}

// Get returns the image stored under key.
func (c *Cache) Get(key string) (*Image, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM images WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	return Unmarshal(data)
}

// Delete removes the image stored under key.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec("DELETE FROM images WHERE key = ?", key)
	return err
}

// Count returns the number of stored images.
func (c *Cache) Count() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n)
	return n, err
}

// Build returns the program for source under g, decoding a cached image
// when one exists and building (then caching) otherwise.
func (c *Cache) Build(g compiler.Grammar, source []byte) (*compiler.Program, error) {
	key := Key(g, source)
	img, err := c.Get(key)
	switch {
	case err == nil:
		prog, derr := img.Decode(g)
		if derr == nil {
			c.log.Debugf("cache hit %s", key[:12])
			return prog, nil
		}
		c.log.Warningf("discarding cached image %s: %v", key[:12], derr)
	case !errors.Is(err, ErrNotCached):
		c.log.Warningf("cache lookup %s: %v", key[:12], err)
	}

	prog, err := compiler.BuildString(g, string(source))
	if err != nil {
		return nil, err
	}
	img, err = New(g, source, prog)
	if err != nil {
		return prog, nil
	}
	if err := c.Put(img); err != nil {
		c.log.Warningf("caching image %s: %v", key[:12], err)
	}
	return prog, nil
}
