package installer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/repository/keystore"
)

// SecretResult is a single keystore lookup.
type SecretResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// SetSecret stores value under key. It is injected into the env file by the
// next api acquisition.
func (s *Service) SetSecret(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)

	if err := s.keys.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set secret %q: %w", key, err)
	}

	logger.InfoKV(ctx, "Secret stored", "key", key)

	return nil
}

// GetSecret returns the value stored under key.
func (s *Service) GetSecret(ctx context.Context, key string) (*SecretResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, keystore.ErrEmptyKey
	}

	value, err := s.keys.Get(ctx, key)
	switch {
	case err == nil:
		return &SecretResult{Key: key, Value: value, Found: true}, nil
	case errors.Is(err, keystore.ErrNotFound):
		return &SecretResult{Key: key}, nil
	default:
		return nil, fmt.Errorf("get secret %q: %w", key, err)
	}
}

// Secrets returns the whole keystore.
func (s *Service) Secrets(ctx context.Context) (map[string]string, error) {
	values, err := s.keys.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}

	return values, nil
}
