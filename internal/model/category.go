package model

import (
	"fmt"
	"strings"
)

// Category classifies a point of interest.
// Values index per-category tables, so the set is closed.
type Category int32

const (
	CategoryNPC Category = iota
	CategoryItem
	CategoryEnemy
	CategoryTransition
	CategoryFacility

	// NumCategories sizes [NumCategories]T tables.
	NumCategories = 5
)

var categoryNames = [NumCategories]string{
	CategoryNPC:        "NPC",
	CategoryItem:       "Item",
	CategoryEnemy:      "Enemy",
	CategoryTransition: "Transition",
	CategoryFacility:   "Facility",
}

// AllCategories returns categories in scan and browse order.
func AllCategories() [NumCategories]Category {
	return [NumCategories]Category{
		CategoryNPC,
		CategoryItem,
		CategoryEnemy,
		CategoryTransition,
		CategoryFacility,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= 0 && c < NumCategories
}

// String returns human-readable category name
func (c Category) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return categoryNames[c]
}

// Key returns the lower-case config key ("npc", "item", ...).
func (c Category) Key() string {
	return strings.ToLower(c.String())
}

// ParseCategory resolves a config key or display name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler (used as YAML map key).
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int32(c))
	}
	return []byte(c.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
