package model

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// EntityID is the stable identifier of a world entity.
// Ordering is used for deterministic tie-breaks.
type EntityID uint64

// WorldEntity is a read-only view of one live entity captured by a scan.
type WorldEntity struct {
	Category    Category
	ID          EntityID
	Position    mgl64.Vec3
	Alive       bool
	TemplateKey string // secondary key for name lookup (template/model id)
}

// DistanceTo returns Euclidean distance between the entity and p.
func (e WorldEntity) DistanceTo(p mgl64.Vec3) float64 {
	return e.Position.Sub(p).Len()
}

// CategorySnapshot is the set of entities of one category seen by one scan.
// Entities must not be mutated by consumers; order carries no meaning.
type CategorySnapshot struct {
	Category   Category
	Generation uint64
	ScannedAt  time.Time
	Entities   []WorldEntity
}

// Empty reports whether the snapshot holds no entities.
func (s CategorySnapshot) Empty() bool {
	return len(s.Entities) == 0
}

// Find returns the entity with the given id.
func (s CategorySnapshot) Find(id EntityID) (WorldEntity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return WorldEntity{}, false
}

// Snapshots holds the latest snapshot of every category, indexed by Category.
type Snapshots [NumCategories]CategorySnapshot

// Get returns the snapshot of category c (zero snapshot for invalid c).
func (s *Snapshots) Get(c Category) CategorySnapshot {
	if !c.Valid() {
		return CategorySnapshot{Category: c}
	}
	return s[c]
}
