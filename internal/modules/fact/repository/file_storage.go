package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/oops"
)

// FileStorage implements Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based plugin config repository
func NewFileStorage(basePath string) (Repository, error) {
	pluginPath := filepath.Join(basePath, "plugins")
	if err := os.MkdirAll(pluginPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create plugins directory").Wrap(err)
	}

	return &FileStorage{basePath: pluginPath}, nil
}

func (s *FileStorage) SaveOverrides(pluginName string, overrides *domain.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if overrides == nil {
		overrides = &domain.Overrides{}
	}

	path := filepath.Join(s.basePath, pluginName+".json")
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return oops.With("plugin", pluginName, "context", "failed to marshal overrides").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return oops.With("plugin", pluginName, "path", path).Wrap(err)
	}
	return nil
}

func (s *FileStorage) GetOverrides(pluginName string) (*domain.Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.basePath, pluginName+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrConfigNotFound
		}
		return nil, oops.With("plugin", pluginName, "context", "failed to read overrides").Wrap(err)
	}

	var overrides domain.Overrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, oops.With("plugin", pluginName, "context", "failed to unmarshal overrides").Wrap(err)
	}

	return &overrides, nil
}

func (s *FileStorage) DeleteOverrides(pluginName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, pluginName+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return oops.With("plugin", pluginName, "path", path).Wrap(err)
	}
	return nil
}
