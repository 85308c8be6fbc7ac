package world

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/arche/ecs"

	"github.com/udisondev/wayfinder/internal/model"
)

// ECS components of the reference registry.
type (
	position struct{ V mgl64.Vec3 }
	kind     struct{ C model.Category }
	identity struct{ ID model.EntityID }
	activity struct{ Active bool }
	template struct{ Key string }
)

// ECSRegistry is an in-process Registry backed by an arche ECS world.
// It stands in for the host game's object lists in the demo host and in tests.
type ECSRegistry struct {
	mu sync.Mutex

	world      ecs.World
	positionID ecs.ID
	kindID     ecs.ID
	identityID ecs.ID
	activityID ecs.ID
	templateID ecs.ID

	byID   map[model.EntityID]ecs.Entity
	ids    *IDAllocator
	loaded [model.NumCategories]bool
}

// NewECSRegistry creates an empty registry with every category loaded.
func NewECSRegistry() *ECSRegistry {
	r := &ECSRegistry{
		world: ecs.NewWorld(),
		byID:  make(map[model.EntityID]ecs.Entity, 256),
		ids:   NewIDAllocator(),
	}
	r.positionID = ecs.ComponentID[position](&r.world)
	r.kindID = ecs.ComponentID[kind](&r.world)
	r.identityID = ecs.ComponentID[identity](&r.world)
	r.activityID = ecs.ComponentID[activity](&r.world)
	r.templateID = ecs.ComponentID[template](&r.world)
	for i := range r.loaded {
		r.loaded[i] = true
	}
	return r
}

// Spawn adds an active entity and returns an id from the category's range.
func (r *ECSRegistry) Spawn(c model.Category, pos mgl64.Vec3, templateKey string) model.EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.ids.Next(c)
	r.spawnLocked(id, c, pos, templateKey)
	return id
}

// SpawnWithID adds an active entity with a caller-chosen id.
func (r *ECSRegistry) SpawnWithID(id model.EntityID, c model.Category, pos mgl64.Vec3, templateKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("entity %d already exists", id)
	}
	r.ids.Observe(id)
	r.spawnLocked(id, c, pos, templateKey)
	return nil
}

func (r *ECSRegistry) spawnLocked(id model.EntityID, c model.Category, pos mgl64.Vec3, templateKey string) {
	e := r.world.NewEntity(r.positionID, r.kindID, r.identityID, r.activityID, r.templateID)
	(*position)(r.world.Get(e, r.positionID)).V = pos
	(*kind)(r.world.Get(e, r.kindID)).C = c
	(*identity)(r.world.Get(e, r.identityID)).ID = id
	(*activity)(r.world.Get(e, r.activityID)).Active = true
	(*template)(r.world.Get(e, r.templateID)).Key = templateKey
	r.byID[id] = e
}

// Despawn destroys an entity. Unknown ids are ignored.
func (r *ECSRegistry) Despawn(id model.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if r.world.Alive(e) {
		r.world.RemoveEntity(e)
	}
}

// SetActive toggles whether an entity is active in the world.
func (r *ECSRegistry) SetActive(id model.EntityID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.aliveLocked(id); ok {
		(*activity)(r.world.Get(e, r.activityID)).Active = active
	}
}

// Move sets the entity position.
func (r *ECSRegistry) Move(id model.EntityID, pos mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.aliveLocked(id); ok {
		(*position)(r.world.Get(e, r.positionID)).V = pos
	}
}

// SetLoaded marks a category as (un)available, simulating a host list not yet populated.
func (r *ECSRegistry) SetLoaded(c model.Category, loaded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Valid() {
		r.loaded[c] = loaded
	}
}

// Clear despawns every entity (area change).
func (r *ECSRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.byID {
		if r.world.Alive(e) {
			r.world.RemoveEntity(e)
		}
		delete(r.byID, id)
	}
}

// Len returns the number of entities in the registry.
func (r *ECSRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ListLive implements Registry.
func (r *ECSRegistry) ListLive(c model.Category) ([]RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.Valid() {
		return nil, fmt.Errorf("listing category %d: %w", int32(c), ErrCategoryUnavailable)
	}
	if !r.loaded[c] {
		return nil, fmt.Errorf("listing %s: %w", c, ErrCategoryUnavailable)
	}

	out := make([]RegistryEntry, 0, 32)
	query := r.world.Query(ecs.All(r.positionID, r.kindID, r.identityID, r.activityID, r.templateID))
	for query.Next() {
		if (*kind)(query.Get(r.kindID)).C != c {
			continue
		}
		out = append(out, RegistryEntry{
			ID:          (*identity)(query.Get(r.identityID)).ID,
			Position:    (*position)(query.Get(r.positionID)).V,
			Active:      (*activity)(query.Get(r.activityID)).Active,
			TemplateKey: (*template)(query.Get(r.templateID)).Key,
		})
	}
	return out, nil
}

// Lookup implements Registry.
func (r *ECSRegistry) Lookup(c model.Category, id model.EntityID) (RegistryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.Valid() || !r.loaded[c] {
		return RegistryEntry{}, false
	}
	e, ok := r.aliveLocked(id)
	if !ok || (*kind)(r.world.Get(e, r.kindID)).C != c {
		return RegistryEntry{}, false
	}
	return RegistryEntry{
		ID:          id,
		Position:    (*position)(r.world.Get(e, r.positionID)).V,
		Active:      (*activity)(r.world.Get(e, r.activityID)).Active,
		TemplateKey: (*template)(r.world.Get(e, r.templateID)).Key,
	}, true
}

func (r *ECSRegistry) aliveLocked(id model.EntityID) (ecs.Entity, bool) {
	e, ok := r.byID[id]
	if !ok || !r.world.Alive(e) {
		return ecs.Entity{}, false
	}
	return e, true
}
