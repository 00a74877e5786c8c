package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Entry format changes
const schemaVersion uint16 = 1

// Key identifies one analyzer invocation: executable, arguments, working
// directory and the content of every input file.
type Key [sha256.Size]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Input is one file whose content feeds a Key.
type Input struct {
	Path    string
	Content []byte
}

// KeyOf hashes an invocation. Every field is length-prefixed so that
// ("ab", "c") and ("a", "bc") hash differently.
func KeyOf(exe string, args []string, workDir string, inputs ...Input) Key {
	h := sha256.New()
	var n [8]byte
	write := func(b []byte) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(b)
	}
	write([]byte(exe))
	write([]byte(workDir))
	binary.LittleEndian.PutUint64(n[:], uint64(len(args)))
	_, _ = h.Write(n[:])
	for _, a := range args {
		write([]byte(a))
	}
	for _, in := range inputs {
		write([]byte(in.Path))
		write(in.Content)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry is the cached result of one analyzer run.
type Entry struct {
	Schema  uint16
	Output  string // analyzer stdout
	Created int64  // unix seconds
}

// DiskCache stores analyzer output on disk keyed by Key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes a cache under the user cache directory
// ($XDG_CACHE_HOME or ~/.cache) in a subdirectory named app.
func Open(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenAt(filepath.Join(base, app))
}

// OpenAt initializes a cache rooted at dir.
func OpenAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(key Key) string {
	s := key.String()
	return filepath.Join(c.dir, "runs", s[:2], s+".mp")
}

// Put serializes and writes an entry, replacing any previous one atomically.
func (c *DiskCache) Put(key Key, output string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // already renamed on success

	entry := Entry{Schema: schemaVersion, Output: output, Created: time.Now().Unix()}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads an entry. Missing entries and entries written by another
// schema version are misses.
func (c *DiskCache) Get(key Key) (Entry, bool, error) {
	if c == nil {
		return Entry{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	defer f.Close() //nolint:errcheck

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if entry.Schema != schemaVersion {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
