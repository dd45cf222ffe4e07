package xmlbind

import (
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// SchemaRegistry maps namespaces to schema locations. Several versions of
// a schema may be registered; the newest one is used for new documents.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string][]schemaVersion
}

type schemaVersion struct {
	version  *semver.Version
	location string
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string][]schemaVersion)}
}

// Register adds a schema location for a namespace at the given version.
func (r *SchemaRegistry) Register(namespace, version, location string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("schema %s: version %q: %w", namespace, version, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[namespace] = append(r.schemas[namespace], schemaVersion{version: v, location: location})
	return nil
}

// Location returns the location of the newest schema for namespace.
func (r *SchemaRegistry) Location(namespace string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *schemaVersion
	for i, s := range r.schemas[namespace] {
		if best == nil || s.version.GreaterThan(best.version) {
			best = &r.schemas[namespace][i]
		}
	}
	if best == nil {
		return "", false
	}
	return best.location, true
}

// Version returns the newest registered version for namespace.
func (r *SchemaRegistry) Version(namespace string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *semver.Version
	for _, s := range r.schemas[namespace] {
		if best == nil || s.version.GreaterThan(best) {
			best = s.version
		}
	}
	if best == nil {
		return "", false
	}
	return best.String(), true
}

// Constraint returns the locations whose version satisfies the semver
// constraint, newest first.
func (r *SchemaRegistry) Constraint(namespace, constraint string) ([]string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("schema %s: constraint %q: %w", namespace, constraint, err)
	}
	r.mu.RLock()
	var matched []schemaVersion
	for _, s := range r.schemas[namespace] {
		if c.Check(s.version) {
			matched = append(matched, s)
		}
	}
	r.mu.RUnlock()

	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].version.GreaterThan(matched[j-1].version); j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	out := make([]string, len(matched))
	for i, s := range matched {
		out[i] = s.location
	}
	return out, nil
}
