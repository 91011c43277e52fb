// Package flags maps numeric header values to their symbolic names.
package flags

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

//go:embed flags.yaml
var builtin []byte

var ErrInvalidRegistry = errors.New("invalid flag registry")

// Entry is one named value of a field.
type Entry struct {
	Value uint64
	Name  string
}

// Registry holds flag names per field key. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	names map[string]map[uint64]string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built into the binary.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Load(bytes.NewReader(builtin))
		if err != nil {
			panic(errors.Wrap(err, "built-in flags"))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Load reads a registry from YAML of the form
//
//	field_key:
//	  0x8664: NAME
func Load(r io.Reader) (*Registry, error) {
	var raw map[string]map[uint64]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrInvalidRegistry, err.Error())
	}

	for field, entries := range raw {
		if field == "" {
			return nil, errors.Wrap(ErrInvalidRegistry, "empty field key")
		}
		for value, name := range entries {
			if name == "" {
				return nil, errors.Wrapf(ErrInvalidRegistry, "%s: empty name for 0x%x", field, value)
			}
		}
	}

	if raw == nil {
		raw = make(map[string]map[uint64]string)
	}
	return &Registry{names: raw}, nil
}

// LoadFile reads a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open flags file")
	}
	defer f.Close()

	r, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return r, nil
}

// Lookup returns the name registered for value under field.
func (r *Registry) Lookup(field string, value uint64) (string, bool) {
	name, ok := r.names[field][value]
	return name, ok
}

// Fields returns the registered field keys, sorted.
func (r *Registry) Fields() []string {
	keys := maps.Keys(r.names)
	slices.Sort(keys)
	return keys
}

// Entries returns the named values of field, ordered by value.
func (r *Registry) Entries(field string) []Entry {
	values := maps.Keys(r.names[field])
	slices.Sort(values)

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		entries = append(entries, Entry{Value: v, Name: r.names[field][v]})
	}
	return entries
}
