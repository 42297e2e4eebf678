package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Cache manages downloaded files, one directory per key
type Cache struct {
	basePath string
}

// Entry describes one cached key
type Entry struct {
	Key   string   `json:"key"`
	Files []string `json:"files"`
	Size  int64    `json:"size"`
}

// New creates a new cache manager
func New(basePath string) *Cache {
	return &Cache{basePath: basePath}
}

// BasePath returns the cache root directory
func (c *Cache) BasePath() string {
	return c.basePath
}

// Dir returns the directory holding the files of a key
func (c *Cache) Dir(key string) string {
	return filepath.Join(c.basePath, key)
}

// PathFor returns where fileName is stored under key
func (c *Cache) PathFor(key, fileName string) string {
	return filepath.Join(c.Dir(key), filepath.Base(fileName))
}

// Exists checks if a file is cached under key
func (c *Cache) Exists(key, fileName string) bool {
	info, err := os.Stat(c.PathFor(key, fileName))
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a key and all its files
func (c *Cache) Delete(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	if err := os.RemoveAll(c.Dir(key)); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Clear removes every cached file
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.basePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.basePath, e.Name())); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}
	return nil
}

// List returns all cached keys sorted by key
func (c *Cache) List() ([]Entry, error) {
	dirs, err := os.ReadDir(c.basePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		entry := Entry{Key: d.Name()}
		err := walkFiles(c.Dir(d.Name()), func(rel string, info fs.FileInfo) {
			entry.Files = append(entry.Files, rel)
			entry.Size += info.Size()
		})
		if err != nil {
			return nil, fmt.Errorf("listing cached files: %w", err)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Size returns the total size of all cached files
func (c *Cache) Size() (int64, error) {
	var total int64
	err := walkFiles(c.basePath, func(_ string, info fs.FileInfo) {
		total += info.Size()
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("calculating cache size: %w", err)
	}
	return total, nil
}

func walkFiles(root string, fn func(rel string, info fs.FileInfo)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fn(rel, info)
		return nil
	})
}
