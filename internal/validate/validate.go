// Package validate checks JSON request bodies against the schemas embedded
// under schemas/.
package validate

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Schema names.
const (
	Credentials       = "credentials"
	JobCreate         = "job_create"
	ApplicationCreate = "application_create"
	Hire              = "hire"
)

// Error lists the schema violations found in a document.
type Error struct {
	Schema string
	Issues []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Schema, strings.Join(e.Issues, "; "))
}

// Loader holds compiled schemas keyed by file name without extension.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewLoader compiles every schemas/*.json file in fsys.
func NewLoader(fsys fs.FS) (*Loader, error) {
	l := &Loader{cache: make(map[string]*jsonschema.Schema)}
	if err := l.Reload(fsys); err != nil {
		return nil, err
	}
	return l, nil
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
	defaultErr    error
)

// Default returns the loader for the embedded schemas.
func Default() (*Loader, error) {
	defaultOnce.Do(func() {
		defaultLoader, defaultErr = NewLoader(schemaFiles)
	})
	return defaultLoader, defaultErr
}

// GetSchema returns a compiled schema by name.
func (l *Loader) GetSchema(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()

	return s, ok
}

// Reload replaces the cache with the schemas found in fsys. On error the
// previous cache is kept.
func (l *Loader) Reload(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "schemas")
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join("schemas", e.Name()))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}

		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		newCache[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// Validate checks data against the named schema. Schema violations are
// reported as *Error; malformed JSON and unknown schemas as plain errors.
func (l *Loader) Validate(ctx context.Context, name string, data []byte) error {
	rs, ok := l.GetSchema(name)
	if !ok {
		return fmt.Errorf("validate: unknown schema %q", name)
	}

	keyErrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if len(keyErrs) == 0 {
		return nil
	}

	issues := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		issues = append(issues, ke.Error())
	}
	return &Error{Schema: name, Issues: issues}
}
