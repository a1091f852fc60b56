package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jonesrussell/goscrape/internal/logger"
)

// File extensions for the two value namespaces.
const (
	rawExt   = ".html"
	valueExt = ".json"
)

// dirPerm is the permission used for created cache directories.
const dirPerm = 0o755

// FSBackend persists entries as files under a directory, one file per
// key. Raw bodies are stored verbatim, processed records as JSON.
type FSBackend struct {
	dir string
	log logger.Interface
}

// NewFS creates a filesystem backend rooted at dir. The directory is
// created on first write.
func NewFS(dir string, log logger.Interface) *FSBackend {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &FSBackend{dir: dir, log: log.WithComponent("fs-cache")}
}

// defaultFS returns an FS backend under the user cache dir, or a memory
// backend when the cache dir cannot be determined.
func defaultFS(kind string) Backend {
	base, err := os.UserCacheDir()
	if err != nil {
		return NewMemory()
	}
	return NewFS(filepath.Join(base, cacheDirName, kind), logger.NewNoOp())
}

// LoadRaw returns the cached raw body for key, if present.
func (f *FSBackend) LoadRaw(_ context.Context, key string) (string, bool) {
	data, err := os.ReadFile(f.path(key, rawExt))
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warn("cache read failed", "key", key, "error", err.Error())
		}
		return "", false
	}
	return string(data), true
}

// SaveRaw stores the raw body under key.
func (f *FSBackend) SaveRaw(_ context.Context, key, body string) {
	f.write(f.path(key, rawExt), []byte(body), key)
}

// LoadValue returns the cached processed records for key, if present.
func (f *FSBackend) LoadValue(_ context.Context, key string) ([]Record, bool) {
	data, err := os.ReadFile(f.path(key, valueExt))
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warn("cache read failed", "key", key, "error", err.Error())
		}
		return nil, false
	}

	var records []Record
	if unmarshalErr := json.Unmarshal(data, &records); unmarshalErr != nil {
		f.log.Warn("cache entry corrupt", "key", key, "error", unmarshalErr.Error())
		return nil, false
	}
	return records, true
}

// SaveValue stores the processed records under key.
func (f *FSBackend) SaveValue(_ context.Context, key string, records []Record) {
	data, err := json.Marshal(records)
	if err != nil {
		f.log.Warn("cache encode failed", "key", key, "error", err.Error())
		return
	}
	f.write(f.path(key, valueExt), data, key)
}

// write stores data at path, creating the directory tree as needed.
// Writes go through a temp file and rename so readers never observe a
// partial entry.
func (f *FSBackend) write(path string, data []byte, key string) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		f.log.Warn("cache dir create failed", "key", key, "error", err.Error())
		return
	}

	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		f.log.Warn("cache write failed", "key", key, "error", err.Error())
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		f.log.Warn("cache rename failed", "key", key, "error", err.Error())
		_ = os.Remove(tmp)
	}
}

// path maps a cache key to a file path. Path separators inside keys
// become subdirectories; other unsafe characters are replaced.
func (f *FSBackend) path(key, ext string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+ext)
}

// sanitizeKey makes a cache key safe to use as a relative file path.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r == '/':
			b.WriteRune(filepath.Separator)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
