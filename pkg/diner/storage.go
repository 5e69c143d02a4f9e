package diner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/appetiteclub/apt"
)

// Fixed keys of the persisted client state.
const (
	KeyCart           = "momo.cart"
	KeySession        = "momo.session"
	KeyCustomer       = "momo.customer"
	KeyOrders         = "momo.orders"
	KeyAutoAddRemoved = "momo.autoAddRemoved"
)

var ErrCorruptState = errors.New("corrupt persisted state")

// Storage persists small JSON documents under fixed keys.
// Load reports false when the key is absent.
type Storage interface {
	Load(key string, dst any) (bool, error)
	Save(key string, v any) error
	Delete(key string) error
}

// MemoryStorage keeps documents in process.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Load(key string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, key, err)
	}
	return true, nil
}

func (s *MemoryStorage) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// SetRaw stores bytes as is.
func (s *MemoryStorage) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
}

// Has reports whether key holds a document.
func (s *MemoryStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// FileStorage keeps one JSON file per key in a directory.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create state dir %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStorage) Load(key string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, key, err)
	}
	return true, nil
}

// Save writes to a temp file first so a crash never leaves half a document.
func (s *FileStorage) Save(key string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// loadState reads key into dst. Corrupt documents are logged, removed and
// reported as absent.
func loadState(s Storage, key string, dst any, logger apt.Logger) bool {
	ok, err := s.Load(key, dst)
	if err == nil {
		return ok
	}
	if errors.Is(err, ErrCorruptState) {
		logger.Info("discarding corrupt state", "key", key, "error", err)
		_ = s.Delete(key)
		return false
	}
	logger.Error("cannot load state", "key", key, "error", err)
	return false
}

func saveState(s Storage, key string, v any, logger apt.Logger) {
	if err := s.Save(key, v); err != nil {
		logger.Error("cannot persist state", "key", key, "error", err)
	}
}

func deleteState(s Storage, key string, logger apt.Logger) {
	if err := s.Delete(key); err != nil {
		logger.Error("cannot delete state", "key", key, "error", err)
	}
}
