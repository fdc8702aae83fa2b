package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/npcforge/forge-installer/internal/config"
	domain "github.com/npcforge/forge-installer/internal/domain/release"
)

// Repository defines persistence operations for the cache record.
type Repository interface {
	Load(ctx context.Context) (*domain.Record, error)
	Save(ctx context.Context, record *domain.Record) error
}

// FileRepository persists the cache record to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON record.
	path string
	// mu serializes the read and write cycles of the file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no record was written yet.
	ErrNotFound = errors.New("cache record not found")
	// errNilRecord is returned when saving a nil record.
	errNilRecord = errors.New("cache record is nil")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the record.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read cache record: %w", err)
	}

	var record domain.Record
	if err = json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode cache record: %w", err)
	}

	if record.Tag == "" {
		return nil, ErrNotFound
	}

	return &record, nil
}

// Save overwrites the record on disk.
func (r *FileRepository) Save(_ context.Context, record *domain.Record) error {
	if record == nil {
		return errNilRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}

	return nil
}
