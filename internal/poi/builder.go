// Package poi builds the on-demand navigation list: points of interest per
// category, sorted by distance, with a wrapping cursor and spoken summaries.
package poi

import (
	"log/slog"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/world"
)

// NoSelection is the cursor index of an empty category.
const NoSelection = -1

// Estimator computes walking distance along the nav mesh. *geo.Estimator implements it.
type Estimator interface {
	Estimate(source, destination mgl64.Vec3) geo.Estimate
}

// Validator re-checks listed entities against the live registry.
// world.Registry implements it.
type Validator interface {
	Lookup(c model.Category, id model.EntityID) (world.RegistryEntry, bool)
}

// Entry is one point of interest in the list.
type Entry struct {
	Entity   model.WorldEntity
	Name     string
	Distance float64 // straight-line
	Bearing  float64 // relative to facing at refresh time, radians, positive = right

	// Filled lazily for the selected entry only.
	PathDistance float64
	PathBearing  float64 // relative initial bearing along the path
	HasPath      bool    // complete nav-mesh path found
	Degraded     bool    // path query fell back to straight line

	pathResolved bool
}

// Cursor is the list selection.
type Cursor struct {
	Category model.Category
	Index    int // NoSelection when the category is empty
}

// Builder maintains per-category POI lists. Not safe for concurrent use.
type Builder struct {
	names     *Names
	labels    *Labels
	estimator Estimator
	validator Validator

	entries [model.NumCategories][]Entry
	pose    model.Pose
	cursor  Cursor
}

// NewBuilder creates a list builder. Any argument may be nil:
// nil names synthesize every label, nil estimator skips path distance.
func NewBuilder(names *Names, labels *Labels, estimator Estimator) *Builder {
	if labels == nil {
		labels = NewLabels()
	}
	return &Builder{
		names:     names,
		labels:    labels,
		estimator: estimator,
		cursor:    Cursor{Category: model.CategoryNPC, Index: NoSelection},
	}
}

// SetValidator makes the builder drop entities the registry no longer reports
// as active and use their live positions. nil disables re-validation.
func (b *Builder) SetValidator(v Validator) {
	b.validator = v
}

// Refresh rebuilds every category list from snapshots as seen from pose.
// The cursor follows the previously selected entity when it is still listed,
// otherwise it clamps to the last valid index.
func (b *Builder) Refresh(snapshots model.Snapshots, pose model.Pose) {
	prev, hadPrev := b.selected()

	b.pose = pose
	for _, c := range model.AllCategories() {
		b.entries[c] = b.build(snapshots.Get(c), pose)
	}

	list := b.entries[b.cursor.Category]
	switch {
	case len(list) == 0:
		b.cursor.Index = NoSelection
	case hadPrev:
		b.cursor.Index = min(b.cursor.Index, len(list)-1)
		for i, e := range list {
			if e.Entity.ID == prev.Entity.ID {
				b.cursor.Index = i
				break
			}
		}
	case b.cursor.Index == NoSelection:
		b.cursor.Index = 0
	default:
		b.cursor.Index = min(b.cursor.Index, len(list)-1)
	}
}

func (b *Builder) build(snap model.CategorySnapshot, pose model.Pose) []Entry {
	if len(snap.Entities) == 0 {
		return nil
	}

	list := make([]Entry, 0, len(snap.Entities))
	for _, ent := range snap.Entities {
		if !ent.Alive {
			continue
		}
		if b.validator != nil {
			live, ok := b.validator.Lookup(ent.Category, ent.ID)
			if !ok || !live.Active {
				continue
			}
			ent.Position = live.Position
		}
		to := ent.Position.Sub(pose.Position)
		list = append(list, Entry{
			Entity:   ent,
			Distance: to.Len(),
			Bearing:  model.Bearing(pose.Facing, to),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Distance != list[j].Distance {
			return list[i].Distance < list[j].Distance
		}
		return list[i].Entity.ID < list[j].Entity.ID
	})

	for i := range list {
		list[i].Name = b.resolveName(list[i].Entity, i+1)
	}
	return list
}

// resolveName applies primary table, template key, then "{Category} {ordinal}".
func (b *Builder) resolveName(e model.WorldEntity, ordinal int) string {
	if name, ok := b.names.Resolve(e); ok {
		return name
	}
	return b.labels.Get(msgSynthName, b.labels.Get(e.Category.String()), ordinal)
}

// CycleCategory moves the cursor by direction categories, wrapping both ways,
// and selects the first entry of the new category.
func (b *Builder) CycleCategory(direction int) Cursor {
	n := int(model.NumCategories)
	next := ((int(b.cursor.Category)+direction)%n + n) % n
	b.cursor.Category = model.AllCategories()[next]
	b.cursor.Index = NoSelection
	if len(b.entries[b.cursor.Category]) > 0 {
		b.cursor.Index = 0
	}
	return b.cursor
}

// CycleItem moves the cursor by direction entries within the category, wrapping both ways.
func (b *Builder) CycleItem(direction int) Cursor {
	m := len(b.entries[b.cursor.Category])
	switch {
	case m == 0:
		b.cursor.Index = NoSelection
	case b.cursor.Index == NoSelection:
		if direction < 0 {
			b.cursor.Index = m - 1
		} else {
			b.cursor.Index = 0
		}
	default:
		b.cursor.Index = ((b.cursor.Index+direction)%m + m) % m
	}
	return b.cursor
}

// CurrentEntry returns the selected entry, resolving its path distance on first access.
// An entry that vanished from the registry since the last refresh is dropped and
// the cursor moves to its neighbour.
func (b *Builder) CurrentEntry() (Entry, bool) {
	var e *Entry
	for {
		if _, ok := b.selected(); !ok {
			return Entry{}, false
		}
		e = &b.entries[b.cursor.Category][b.cursor.Index]
		if b.revalidate(e) {
			break
		}
		b.dropSelected()
	}
	if !e.pathResolved && b.estimator != nil {
		est := b.estimator.Estimate(b.pose.Position, e.Entity.Position)
		e.PathDistance = est.PathLength
		e.PathBearing = model.RelativeBearing(b.pose.Facing, est.Bearing)
		e.HasPath = !est.Degraded
		e.Degraded = est.Degraded
		e.pathResolved = true
	}
	return *e, true
}

// revalidate reports whether e still exists, following a moved entity.
func (b *Builder) revalidate(e *Entry) bool {
	if b.validator == nil {
		return true
	}
	live, ok := b.validator.Lookup(e.Entity.Category, e.Entity.ID)
	if !ok || !live.Active {
		return false
	}
	if live.Position != e.Entity.Position {
		e.Entity.Position = live.Position
		to := live.Position.Sub(b.pose.Position)
		e.Distance = to.Len()
		e.Bearing = model.Bearing(b.pose.Facing, to)
		e.pathResolved = false
	}
	return true
}

func (b *Builder) dropSelected() {
	c, i := b.cursor.Category, b.cursor.Index
	slog.Debug("list entry gone", "category", c, "id", b.entries[c][i].Entity.ID)
	b.entries[c] = append(b.entries[c][:i], b.entries[c][i+1:]...)
	switch {
	case len(b.entries[c]) == 0:
		b.cursor.Index = NoSelection
	case i >= len(b.entries[c]):
		b.cursor.Index = len(b.entries[c]) - 1
	}
}

// Cursor returns the current selection.
func (b *Builder) Cursor() Cursor {
	return b.cursor
}

// Entries returns the sorted list of category c. Callers must not modify it.
func (b *Builder) Entries(c model.Category) []Entry {
	if !c.Valid() {
		return nil
	}
	return b.entries[c]
}

func (b *Builder) selected() (Entry, bool) {
	list := b.entries[b.cursor.Category]
	if b.cursor.Index < 0 || b.cursor.Index >= len(list) {
		return Entry{}, false
	}
	return list[b.cursor.Index], true
}
