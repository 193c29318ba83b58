package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// hex sha256 digest length, which is also the entry filename length
const entryNameLen = sha256.Size * 2

// DiskCache is a cache provider keeping one file per entry in a flat
// directory. The filename is the hex SHA-256 of the key: filesystem-safe
// and collision-free for any key the proxy derives. Writes go to a temp
// file followed by a rename, so readers never observe a partial entry
// and concurrent writes to the same key cannot corrupt it; the last
// rename wins.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed and returns a
// provider over it.
func NewDiskCache(dir string) (DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DiskCache{}, err
	}
	return DiskCache{dir: dir}, nil
}

func (d DiskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:]))
}

func (d DiskCache) Get(key string) ([]byte, bool, error) {
	bytes, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (d DiskCache) Put(key string, bytes []byte) error {
	tmp, err := os.CreateTemp(d.dir, "put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (d DiskCache) Has(key string) bool {
	_, err := os.Stat(d.path(key))
	return err == nil
}

func (d DiskCache) Purge(key string) error {
	err := os.Remove(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every entry file. Temp files from in-flight writes are
// left alone.
func (d DiskCache) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || len(entry.Name()) != entryNameLen {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
