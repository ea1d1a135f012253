package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStore keeps all entries in a single JSON file, rewritten on every Put.
// Suitable for the single-operator local deployment; the hosted server uses
// PGStore instead.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]json.RawMessage
}

func OpenFile(path string) (*FileStore, error) {
	st := &FileStore{
		path:    path,
		entries: make(map[string]json.RawMessage),
	}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *FileStore) load() error {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read data file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &st.entries); err != nil {
		return fmt.Errorf("failed to decode data file %s: %w", st.path, err)
	}
	return nil
}

func (st *FileStore) save() error {
	data, err := json.MarshalIndent(st.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	if err := os.WriteFile(st.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

func (st *FileStore) Get(key string, dst interface{}) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, ok := st.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode entry %q: %w", key, err)
	}
	return true, nil
}

func (st *FileStore) Put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode entry %q: %w", key, err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries[key] = raw
	return st.save()
}

func (st *FileStore) Delete(key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.entries, key)
	return st.save()
}
