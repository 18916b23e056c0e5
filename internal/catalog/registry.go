package catalog

import (
	"log"
	"sync"
)

// Registry is the read-only catalog of assessment configurations.
type Registry struct {
	order     []string
	configs   map[string]Config
	mappings  map[string]Mapping
	defaultID string
}

func newRegistry(defaultID string) *Registry {
	return &Registry{
		configs:   map[string]Config{},
		mappings:  map[string]Mapping{},
		defaultID: defaultID,
	}
}

func (r *Registry) add(c Config, m *Mapping) {
	if _, exists := r.configs[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.configs[c.ID] = c
	if m != nil {
		r.mappings[c.ID] = *m
	}
}

// Get returns the configuration for id, or the default configuration when id
// is empty or unknown.
func (r *Registry) Get(id string) Config {
	if c, ok := r.configs[id]; ok {
		return c
	}
	if id != "" {
		log.Printf("WARN: [Catalog] configuration %q not found, falling back to %q", id, r.defaultID)
	}
	return r.Default()
}

// Lookup is the strict variant of Get.
func (r *Registry) Lookup(id string) (Config, bool) {
	c, ok := r.configs[id]
	return c, ok
}

func (r *Registry) Default() Config { return r.configs[r.defaultID] }

func (r *Registry) DefaultID() string { return r.defaultID }

// List returns every configuration in catalog order.
func (r *Registry) List() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}

// PersistenceMapping returns the destination table and column mapping for id.
// There is no default fallback here.
func (r *Registry) PersistenceMapping(id string) (Mapping, bool) {
	m, ok := r.mappings[id]
	return m, ok
}

// Mappings returns all persistence mappings in catalog order.
func (r *Registry) Mappings() []Mapping {
	out := make([]Mapping, 0, len(r.mappings))
	for _, id := range r.order {
		if m, ok := r.mappings[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the embedded catalog. It panics if the embedded file is
// invalid, which the package tests guard against.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := parse(builtinYAML)
		if err != nil {
			panic("catalog: embedded catalog: " + err.Error())
		}
		builtin = r
	})
	return builtin
}
