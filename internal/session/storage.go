package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// The two fixed entry names the session persists, the same pair the web
// build of this client kept in localStorage.
const (
	KeyToken = "crm_token"
	KeyUser  = "crm_user"
)

// ErrNoEntry reports an absent storage key.
var ErrNoEntry = errors.New("no such entry")

// Storage is the durable key/value store backing the session across runs.
type Storage interface {
	// Read returns the stored value, or ErrNoEntry when the key is absent.
	Read(key string) ([]byte, error)
	Write(key string, value []byte) error
	// Remove deletes the entry; removing a missing key is not an error.
	Remove(key string) error
}

// FileStorage keeps each entry as a file under dir. Protection is file modes
// only: any process running as this user can read or replace the session,
// the same trust model localStorage gives a browser origin.
type FileStorage struct {
	dir string
}

// DefaultDir resolves the state directory, honoring XDG_CONFIG_HOME.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "crmctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "crmctl")
}

// NewFileStorage returns storage rooted at dir, or at DefaultDir when dir is empty.
func NewFileStorage(dir string) *FileStorage {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileStorage{dir: dir}
}

func (s *FileStorage) path(key string) string { return filepath.Join(s.dir, key) }

func (s *FileStorage) Read(key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoEntry
	}
	return b, err
}

func (s *FileStorage) Write(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), value, 0o600)
}

func (s *FileStorage) Remove(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
