package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSnippetNotFound reports a snippet name with no file on any level
// of the override chain.
var ErrSnippetNotFound = errors.New("snippet not found")

// SnippetStore resolves snippet names against a directory tree with
// per-object overrides. Lookup order is per_system, per_profile,
// per_distro, then the general snippet at the root of the tree. The
// object names are read from the render data under system_name,
// profile_name and distro_name.
type SnippetStore struct {
	root string
}

func NewSnippetStore(root string) *SnippetStore {
	return &SnippetStore{root: root}
}

// Resolve returns the path of the most specific snippet file for
// name, or ErrSnippetNotFound.
func (s *SnippetStore) Resolve(name string, data map[string]interface{}) (string, error) {
	levels := []struct {
		dir string
		key string
	}{
		{"per_system", "system_name"},
		{"per_profile", "profile_name"},
		{"per_distro", "distro_name"},
	}
	for _, level := range levels {
		object, _ := data[level.key].(string)
		if object == "" {
			continue
		}
		candidate := filepath.Join(s.root, level.dir, name, object)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	candidate := filepath.Join(s.root, name)
	if fileExists(candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSnippetNotFound, name)
}

// Read resolves and loads the snippet body.
func (s *SnippetStore) Read(name string, data map[string]interface{}) (string, error) {
	path, err := s.Resolve(name, data)
	if err != nil {
		return "", err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading snippet %s: %w", name, err)
	}
	return string(body), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
