package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/groupmeal/internal/domain"
)

// Fixture is a set of entities to seed a store with.
type Fixture struct {
	Listings []EntitySpec `yaml:"listings"`
	Users    []EntitySpec `yaml:"users"`
}

// EntitySpec is the YAML form of one entity.
type EntitySpec struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title,omitempty"`
	Email       string         `yaml:"email,omitempty"`
	Profile     *ProfileSpec   `yaml:"profile,omitempty"`
	PublicData  map[string]any `yaml:"publicData,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	PrivateData map[string]any `yaml:"privateData,omitempty"`
}

// ProfileSpec is the YAML form of a user profile.
type ProfileSpec struct {
	FirstName   string         `yaml:"firstName,omitempty"`
	LastName    string         `yaml:"lastName,omitempty"`
	DisplayName string         `yaml:"displayName,omitempty"`
	PublicData  map[string]any `yaml:"publicData,omitempty"`
	PrivateData map[string]any `yaml:"privateData,omitempty"`
}

// EntityWriter stores entities. *store.Store implements it.
type EntityWriter interface {
	Put(ctx context.Context, e domain.Entity) error
}

// LoadFixture reads and parses a fixture YAML file. Unknown fields and
// entities without an id are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	seen := map[string]bool{}
	for i, spec := range append(append([]EntitySpec{}, f.Listings...), f.Users...) {
		if spec.ID == "" {
			return nil, fmt.Errorf("invalid fixture: entity %d: id is required", i)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("invalid fixture: duplicate id %q", spec.ID)
		}
		seen[spec.ID] = true
	}
	return &f, nil
}

// Entities converts the fixture into domain entities, listings first.
func (f *Fixture) Entities() ([]domain.Entity, error) {
	out := make([]domain.Entity, 0, len(f.Listings)+len(f.Users))
	for _, spec := range f.Listings {
		e, err := spec.Entity(domain.KindListing)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	for _, spec := range f.Users {
		e, err := spec.Entity(domain.KindUser)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Apply writes every entity of the fixture and returns how many were written.
func (f *Fixture) Apply(ctx context.Context, w EntityWriter) (int, error) {
	entities, err := f.Entities()
	if err != nil {
		return 0, err
	}
	for _, e := range entities {
		if err := w.Put(ctx, e); err != nil {
			return 0, fmt.Errorf("seed %s: %w", e.Key(), err)
		}
	}
	return len(entities), nil
}

// Entity converts the fixture entry into an entity of the given kind.
func (s EntitySpec) Entity(kind domain.EntityKind) (domain.Entity, error) {
	e := domain.NewEntity(s.ID, kind)
	e.Attributes.Title = s.Title
	e.Attributes.Email = s.Email

	var err error
	if e.Attributes.PublicData, err = bag(s.PublicData); err != nil {
		return domain.Entity{}, fmt.Errorf("%s publicData: %w", s.ID, err)
	}
	if e.Attributes.Metadata, err = bag(s.Metadata); err != nil {
		return domain.Entity{}, fmt.Errorf("%s metadata: %w", s.ID, err)
	}
	if e.Attributes.PrivateData, err = bag(s.PrivateData); err != nil {
		return domain.Entity{}, fmt.Errorf("%s privateData: %w", s.ID, err)
	}

	if p := s.Profile; p != nil {
		profile := &domain.Profile{FirstName: p.FirstName, LastName: p.LastName, DisplayName: p.DisplayName}
		if profile.PublicData, err = bag(p.PublicData); err != nil {
			return domain.Entity{}, fmt.Errorf("%s profile.publicData: %w", s.ID, err)
		}
		if profile.PrivateData, err = bag(p.PrivateData); err != nil {
			return domain.Entity{}, fmt.Errorf("%s profile.privateData: %w", s.ID, err)
		}
		e.Attributes.Profile = profile
	}
	return e, nil
}

// bag turns a YAML mapping into a JSON data bag. Nil stays nil.
func bag(m map[string]any) (json.RawMessage, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
