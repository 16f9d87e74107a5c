// Package registry loads the per-series source configuration.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/efb/signals/signals-backend/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

// Registry is an immutable, ordered set of sources keyed by id
type Registry struct {
	sources []*domain.Source
	byID    map[string]*domain.Source
}

type registryFile struct {
	Sources []*domain.Source `yaml:"sources"`
}

// Default returns the registry embedded in the binary
func Default() (*Registry, error) {
	return Parse(defaultSources)
}

// LoadFile reads a registry from a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return Parse(data)
}

// Load returns the registry at path, or the embedded default when path is empty
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes and validates registry YAML
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRegistry, err)
	}
	return New(file.Sources)
}

// New builds a registry from source records, rejecting invalid or duplicate entries
func New(sources []*domain.Source) (*Registry, error) {
	r := &Registry{
		sources: make([]*domain.Source, 0, len(sources)),
		byID:    make(map[string]*domain.Source, len(sources)),
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byID[src.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate source id %s", domain.ErrInvalidRegistry, src.ID)
		}
		if src.Variant == domain.VariantExchangeRate {
			src.DefaultBase = strings.ToUpper(src.DefaultBase)
			src.DefaultSymbol = strings.ToUpper(src.DefaultSymbol)
		}
		r.sources = append(r.sources, src)
		r.byID[src.ID] = src
	}
	return r, nil
}

// Get returns the source with the given id
func (r *Registry) Get(id string) (*domain.Source, bool) {
	src, ok := r.byID[id]
	return src, ok
}

// All returns the sources in declaration order
func (r *Registry) All() []*domain.Source {
	out := make([]*domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// IDs returns the source ids in declaration order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sources))
	for i, src := range r.sources {
		ids[i] = src.ID
	}
	return ids
}

// Len returns the number of sources
func (r *Registry) Len() int {
	return len(r.sources)
}
