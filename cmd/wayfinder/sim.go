package main

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/wayfinder/internal/gate"
	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/world"
)

// demoLayout is a two-room map joined by a doorway; row 0 is the north wall.
const demoLayout = `
############
#....#.....#
#....#.....#
#..........#
#....#.....#
############
`

const (
	walkSpeed     = 1.4 // m/s
	cycleLength   = 60 * time.Second
	battleStart   = 30 * time.Second
	battleEnd     = 35 * time.Second
	areaChangeAt  = 45 * time.Second
	itemEvery     = 8 * time.Second
	categoryEvery = 20 * time.Second
)

type simEvent int

const (
	simAreaChanged simEvent = iota
	simNextItem
	simNextCategory
)

var route = []mgl64.Vec3{
	{2.5, 0, 1.5},
	{2.5, 0, 4.5},
	{4.5, 0, 2.5},
	{9.5, 0, 2.5},
	{9.5, 0, 4.5},
	{7.5, 0, 1.5},
	{4.5, 0, 2.5},
}

type demoSpawn struct {
	id       model.EntityID
	category model.Category
	position mgl64.Vec3
	template string
}

var areas = [2][]demoSpawn{
	{
		{12, model.CategoryNPC, mgl64.Vec3{3.5, 0, 4.5}, ""},
		{20, model.CategoryItem, mgl64.Vec3{9.5, 0, 1.5}, ""},
		{30, model.CategoryEnemy, mgl64.Vec3{7.5, 0, 3.5}, "goblin_scout"},
		{31, model.CategoryEnemy, mgl64.Vec3{8.5, 0, 4.5}, "goblin_scout"},
		{1, model.CategoryTransition, mgl64.Vec3{10.5, 0, 2.5}, ""},
		{40, model.CategoryFacility, mgl64.Vec3{1.5, 0, 1.5}, "inn"},
	},
	{
		{13, model.CategoryNPC, mgl64.Vec3{8.5, 0, 1.5}, ""},
		{21, model.CategoryItem, mgl64.Vec3{1.5, 0, 4.5}, ""},
		{2, model.CategoryTransition, mgl64.Vec3{1.5, 0, 2.5}, ""},
	},
}

// simulation stands in for the host game: it walks the player along a fixed
// route, toggles battle, swaps areas and presses list keys on a schedule.
// It is driven from the tick goroutine only.
type simulation struct {
	registry *world.ECSRegistry

	start    time.Time
	last     time.Time
	leg      int
	position mgl64.Vec3
	facing   mgl64.Vec3
	area     int

	battle       bool
	cycle        int64
	lastItem     int64
	lastCategory int64
}

func newSimulation(registry *world.ECSRegistry) *simulation {
	s := &simulation{
		registry: registry,
		position: route[0],
		facing:   mgl64.Vec3{0, 0, 1},
	}
	s.populate()
	return s
}

// Signals implements gate.SignalProvider.
func (s *simulation) Signals() gate.Signals {
	return gate.Signals{Battle: s.battle}
}

// CurrentPosition implements navigator.PoseProvider.
func (s *simulation) CurrentPosition() mgl64.Vec3 { return s.position }

// CurrentFacing implements navigator.PoseProvider.
func (s *simulation) CurrentFacing() mgl64.Vec3 { return s.facing }

// Advance moves the simulated world to now and returns the host events due.
func (s *simulation) Advance(now time.Time) []simEvent {
	if s.start.IsZero() {
		s.start, s.last = now, now
	}
	dt := now.Sub(s.last).Seconds()
	s.last = now
	s.walk(dt)

	elapsed := now.Sub(s.start)
	var events []simEvent

	if n := int64(elapsed / itemEvery); n > s.lastItem {
		s.lastItem = n
		events = append(events, simNextItem)
	}
	if n := int64(elapsed / categoryEvery); n > s.lastCategory {
		s.lastCategory = n
		events = append(events, simNextCategory)
	}

	inCycle := elapsed % cycleLength
	s.battle = inCycle >= battleStart && inCycle < battleEnd

	if cycle := int64(elapsed / cycleLength); inCycle >= areaChangeAt && cycle >= s.cycle {
		s.cycle = cycle + 1
		s.area = (s.area + 1) % len(areas)
		s.populate()
		slog.Info("simulated area change", "area", s.area)
		events = append(events, simAreaChanged)
	}
	return events
}

func (s *simulation) walk(dt float64) {
	remaining := walkSpeed * dt
	for remaining > 0 {
		target := route[(s.leg+1)%len(route)]
		delta := target.Sub(s.position)
		dist := delta.Len()
		if dist <= remaining {
			s.position = target
			s.leg = (s.leg + 1) % len(route)
			remaining -= dist
			continue
		}
		s.facing = delta.Normalize()
		s.position = s.position.Add(s.facing.Mul(remaining))
		remaining = 0
	}
}

func (s *simulation) populate() {
	s.registry.Clear()
	for _, sp := range areas[s.area] {
		if err := s.registry.SpawnWithID(sp.id, sp.category, sp.position, sp.template); err != nil {
			slog.Warn("demo spawn failed", "id", sp.id, "err", err)
		}
	}
}
