package world

import (
	"sync/atomic"

	"github.com/udisondev/wayfinder/internal/model"
)

// IDAllocator generates entity ids for registry spawns.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: caller-chosen ids (host objects, unknown categories)
//	0x10000000 - 0x1FFFFFFF: NPC
//	0x20000000 - 0x2FFFFFFF: Item
//	0x30000000 - 0x3FFFFFFF: Enemy
//	0x40000000 - 0x4FFFFFFF: Transition
//	0x50000000 - 0x5FFFFFFF: Facility
type IDAllocator struct {
	reserved atomic.Uint64
	next     [model.NumCategories]atomic.Uint64
}

const idRangeSize = 0x10000000

// NewIDAllocator creates an allocator with every range empty.
func NewIDAllocator() *IDAllocator {
	g := &IDAllocator{}
	for _, c := range model.AllCategories() {
		g.next[c].Store(uint64(idBase(c)))
	}
	return g
}

// Next returns a fresh id in the range of category c.
// Thread-safe via atomic increment.
func (g *IDAllocator) Next(c model.Category) model.EntityID {
	if !c.Valid() {
		return model.EntityID(g.reserved.Add(1))
	}
	return model.EntityID(g.next[c].Add(1))
}

// Observe records an externally chosen id so Next never hands it out.
func (g *IDAllocator) Observe(id model.EntityID) {
	counter := g.counterFor(id)
	if counter == nil {
		return
	}
	for {
		cur := counter.Load()
		if uint64(id) <= cur || counter.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

func (g *IDAllocator) counterFor(id model.EntityID) *atomic.Uint64 {
	if id < idRangeSize {
		return &g.reserved
	}
	if c, ok := CategoryOfID(id); ok {
		return &g.next[c]
	}
	return nil
}

// CategoryOfID returns the category whose generated range contains id.
func CategoryOfID(id model.EntityID) (model.Category, bool) {
	q := id / idRangeSize
	if q == 0 || q > model.NumCategories {
		return 0, false
	}
	return model.Category(q - 1), true
}

func idBase(c model.Category) model.EntityID {
	return model.EntityID(c+1) * idRangeSize
}
