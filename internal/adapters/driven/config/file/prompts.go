package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptReadme = `# Tripwise Prompts

This directory contains the prompts sent to the language model.

## Files

%s

## Customisation

Edit a file to change what the model is asked. Changes take effect after
the server restarts. Prompts are Go text/template documents. The itinerary
prompt uses {{.Destination}}, {{.Days}}, {{.Preferences}} and {{.Context}};
the question prompt uses {{.Question}}, {{.History}} and {{.Context}}.
Deleting a file restores the built-in version on the next start.
`

// PromptStore serves prompt templates from <dir>/<name>.txt, falling back
// to built-in defaults. The directory is seeded with the defaults on the
// first Load; existing files are never overwritten.
type PromptStore struct {
	dir      string
	defaults map[string]string
	seed     func() error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store rooted at dir. No files are touched until
// the first Load.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		return nil, errors.New("prompt directory is required")
	}
	s := &PromptStore{
		dir:      dir,
		defaults: maps.Clone(defaults),
		cache:    make(map[string]string),
	}
	s.seed = sync.OnceValue(s.writeDefaults)
	return s, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the named prompt. An unreadable or blank file yields the
// built-in default when there is one.
func (s *PromptStore) Load(name string) (string, error) {
	if err := s.seed(); err != nil {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", err)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	raw, err := os.ReadFile(s.file(name))
	prompt = strings.TrimSpace(string(raw))
	if err != nil || prompt == "" {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		if err == nil {
			err = errors.New("file is empty")
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload forgets cached prompts so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) file(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	names := slices.Sorted(maps.Keys(s.defaults))
	listing := make([]string, len(names))
	for i, name := range names {
		listing[i] = "- `" + name + ".txt`"
		if err := writeIfAbsent(s.file(name), s.defaults[name]); err != nil {
			return fmt.Errorf("create default prompt %q: %w", name, err)
		}
	}
	readme := fmt.Sprintf(promptReadme, strings.Join(listing, "\n"))
	if err := writeIfAbsent(filepath.Join(s.dir, "README.md"), readme); err != nil {
		return fmt.Errorf("create prompt readme: %w", err)
	}
	logger.Debug("prompt directory ready at %s", s.dir)
	return nil
}

// writeIfAbsent creates path with content unless it already exists.
func writeIfAbsent(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
