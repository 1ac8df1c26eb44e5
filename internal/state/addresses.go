package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileAddressBook stores the address book as a JSON array on disk, the
// closest server-side analogue to a browser's durable storage.
type FileAddressBook struct {
	Path string
}

// Load reads the saved addresses. A missing file is an empty book.
func (f *FileAddressBook) Load() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var addresses []string
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

// Save writes the address book atomically via a temp file rename.
func (f *FileAddressBook) Save(addresses []string) error {
	data, err := json.Marshal(addresses)
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
