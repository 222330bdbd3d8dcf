package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage keeps a named blob as a JSON file under basePath. Writes go to a
// temporary file first and are renamed into place.
type Storage struct {
	basePath string
	key      string
}

func New(basePath, key string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/cache"
	}
	if key == "" {
		return nil, fmt.Errorf("storage key is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, key: key}, nil
}

func (s *Storage) Path() string {
	return filepath.Join(s.basePath, s.key+".json")
}

func (s *Storage) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *Storage) Write(_ context.Context, data []byte) error {
	f, err := os.CreateTemp(s.basePath, s.key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
