package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/wayfinder/internal/model"
)

// ErrCategoryUnavailable is returned by a Registry whose category is not loaded yet
// (e.g. the host has not populated its object list after a map change).
var ErrCategoryUnavailable = errors.New("category not available")

// RegistryEntry is one entity as reported by the host game.
type RegistryEntry struct {
	ID          model.EntityID
	Position    mgl64.Vec3
	Active      bool // active in the world right now, not merely existing
	TemplateKey string
}

// Registry exposes live host entities per category.
// Implementations are called from the tick goroutine only.
type Registry interface {
	// ListLive returns every entity of the category known to the host.
	ListLive(c model.Category) ([]RegistryEntry, error)

	// Lookup re-validates a single entity. ok=false when it no longer exists.
	Lookup(c model.Category, id model.EntityID) (RegistryEntry, bool)
}
