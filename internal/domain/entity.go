package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EntityKind selects the storage collection an entity lives in.
type EntityKind string

const (
	KindListing EntityKind = "listing"
	KindUser    EntityKind = "user"
)

// EntityID is the wrapped identifier used by storage documents.
type EntityID struct {
	UUID string `json:"uuid"`
}

// Entity is the denormalized document shape returned by storage.
type Entity struct {
	ID         EntityID   `json:"id"`
	Type       EntityKind `json:"type"`
	Attributes Attributes `json:"attributes"`
	Images     []Image    `json:"images,omitempty"`
}

// Attributes carries the title/price and the three data bags of an entity.
// Users additionally carry a profile and an email address.
type Attributes struct {
	Title       string          `json:"title,omitempty"`
	Price       *Money          `json:"price,omitempty"`
	Email       string          `json:"email,omitempty"`
	Profile     *Profile        `json:"profile,omitempty"`
	PublicData  json.RawMessage `json:"publicData,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	PrivateData json.RawMessage `json:"privateData,omitempty"`
}

// Profile is the user part of an entity.
type Profile struct {
	FirstName   string          `json:"firstName,omitempty"`
	LastName    string          `json:"lastName,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	PublicData  json.RawMessage `json:"publicData,omitempty"`
	PrivateData json.RawMessage `json:"privateData,omitempty"`
}

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// Image is an attached image reference. The pipeline only carries it through.
type Image struct {
	ID  EntityID `json:"id"`
	URL string   `json:"url,omitempty"`
}

// NewEntity builds an entity with the given id and kind.
func NewEntity(id string, kind EntityKind) Entity {
	return Entity{ID: EntityID{UUID: id}, Type: kind}
}

// Key returns the plain id of the entity.
func (e Entity) Key() string {
	return e.ID.UUID
}

// MergeMetadata replaces the given top-level metadata keys and returns the
// merged document. Keys not named in patch are kept untouched.
func MergeMetadata(current json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(current) > 0 && string(current) != "null" {
		if err := json.Unmarshal(current, &merged); err != nil {
			return nil, &ValidationError{Field: "metadata", Message: err.Error()}
		}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, &ValidationError{Field: "metadata." + k, Message: err.Error()}
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// unmarshalBag decodes an optional data bag; an absent bag leaves v untouched.
func unmarshalBag(raw json.RawMessage, field string, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}
