package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/npcforge/forge-installer/internal/config"
)

// Repository defines operations on the secret mapping.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Merge(ctx context.Context, values map[string]string) error
}

// FileRepository keeps secrets in a JSON file. Every write rewrites the whole
// document under the mutex.
type FileRepository struct {
	// path is the filesystem location of the JSON document.
	path string
	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned by Get for unknown keys.
	ErrNotFound = errors.New("secret not found")
	// ErrEmptyKey is returned when a key is empty.
	ErrEmptyKey = errors.New("secret key is empty")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Get returns the value stored under key.
func (r *FileRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

// All returns a copy of the whole mapping. A missing document is empty.
func (r *FileRepository) All(_ context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read()
}

// Set stores value under key.
func (r *FileRepository) Set(ctx context.Context, key, value string) error {
	return r.Merge(ctx, map[string]string{key: value})
}

// Merge stores every pair of values, keeping the other keys.
func (r *FileRepository) Merge(_ context.Context, values map[string]string) error {
	for key := range values {
		if key == "" {
			return ErrEmptyKey
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}

	maps.Copy(current, values)

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}

	return nil
}

// read loads the document; the caller holds mu.
func (r *FileRepository) read() (map[string]string, error) {
	values := make(map[string]string)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}

		return nil, fmt.Errorf("read keystore: %w", err)
	}

	if err = json.Unmarshal(contents, &values); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}

	if values == nil {
		values = make(map[string]string)
	}

	return values, nil
}
