package world

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zyedidia/generic/mapset"
	"golang.org/x/time/rate"

	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/model"
)

// Reason tells the scanner why a rescan was requested.
type Reason int

const (
	// ReasonAreaChanged - map/zone transition; supersedes any in-flight pass and opens the rescan window
	ReasonAreaChanged Reason = iota
	// ReasonRequested - ordinary refresh request (battle ended, list refresh)
	ReasonRequested
)

// String returns human-readable reason
func (r Reason) String() string {
	switch r {
	case ReasonAreaChanged:
		return "AREA_CHANGED"
	case ReasonRequested:
		return "REQUESTED"
	default:
		return "UNKNOWN"
	}
}

type passState int

const (
	passIdle passState = iota
	passRunning
)

// Scanner keeps categorized snapshots of registry entities.
// A full pass rescans every category, one category per Tick (round-robin),
// so per-frame cost is bounded by the most expensive single category.
// Not safe for concurrent use: Tick, Scan and ScheduleRescan belong to the tick goroutine.
type Scanner struct {
	registry Registry
	cfg      config.ScannerConfig
	now      func() time.Time

	snapshots  model.Snapshots
	ids        [model.NumCategories]mapset.Set[model.EntityID]
	generation uint64

	unavailable [model.NumCategories]bool
	failLog     [model.NumCategories]*rate.Sometimes

	// pass state machine
	state       passState
	cursor      int // index into model.AllCategories() of the next category to rescan
	pending     bool
	nextPassAt  time.Time
	windowUntil time.Time
	passes      uint64
}

// NewScanner creates a scanner over registry. now may be nil (time.Now).
// The first Tick starts a full pass immediately.
func NewScanner(registry Registry, cfg config.ScannerConfig, now func() time.Time) *Scanner {
	if now == nil {
		now = time.Now
	}
	s := &Scanner{
		registry: registry,
		cfg:      cfg,
		now:      now,
		pending:  true,
	}
	for _, c := range model.AllCategories() {
		s.snapshots[c] = model.CategorySnapshot{Category: c}
		s.ids[c] = mapset.New[model.EntityID]()
		s.failLog[c] = &rate.Sometimes{Interval: 30 * time.Second}
	}
	return s
}

// Tick advances the pass state machine by one step: at most one category is rescanned.
func (s *Scanner) Tick() {
	now := s.now()

	if s.state == passIdle {
		if !s.pending && now.Before(s.nextPassAt) {
			return
		}
		s.pending = false
		s.state = passRunning
		s.cursor = 0
	}

	c := model.AllCategories()[s.cursor]
	s.rescan(c, now)
	s.cursor++

	if s.cursor >= model.NumCategories {
		s.state = passIdle
		s.cursor = 0
		s.passes++
		s.nextPassAt = now.Add(s.interval(now))
	}
}

// interval returns the pause before the next pass.
func (s *Scanner) interval(now time.Time) time.Duration {
	if now.Before(s.windowUntil) {
		return s.cfg.WindowInterval
	}
	return s.cfg.IdleInterval
}

// ScheduleRescan requests a new pass.
// ReasonAreaChanged abandons the in-flight pass, drops every snapshot (entities of the
// previous area are invalid) and opens the rescan window. ReasonRequested starts a pass
// on the next Tick unless one is already running.
func (s *Scanner) ScheduleRescan(reason Reason) {
	now := s.now()

	switch reason {
	case ReasonAreaChanged:
		if s.state == passRunning {
			slog.Debug("scan pass superseded", "cursor", s.cursor, "pass", s.passes)
		}
		s.state = passIdle
		s.cursor = 0
		s.pending = true
		s.windowUntil = now.Add(s.cfg.WindowDuration)
		for _, c := range model.AllCategories() {
			s.store(c, nil, now)
		}
		slog.Debug("rescan window opened", "until", s.windowUntil)

	default:
		if s.state == passRunning {
			return
		}
		s.pending = true
	}
}

// Scan rescans category c synchronously, outside the round-robin cursor,
// and returns the fresh snapshot.
func (s *Scanner) Scan(c model.Category) model.CategorySnapshot {
	if !c.Valid() {
		return model.CategorySnapshot{Category: c}
	}
	s.rescan(c, s.now())
	return s.snapshots[c]
}

// Snapshot returns the latest snapshot of category c.
func (s *Scanner) Snapshot(c model.Category) model.CategorySnapshot {
	return s.snapshots.Get(c)
}

// Snapshots returns the latest snapshots of all categories.
func (s *Scanner) Snapshots() model.Snapshots {
	return s.snapshots
}

// WindowOpen reports whether the post-transition rescan window is active.
func (s *Scanner) WindowOpen() bool {
	return s.now().Before(s.windowUntil)
}

// Scanning reports whether a pass is in flight.
func (s *Scanner) Scanning() bool {
	return s.state == passRunning
}

// Passes returns the number of completed passes.
func (s *Scanner) Passes() uint64 {
	return s.passes
}

// Unavailable reports whether the last rescan of c failed.
func (s *Scanner) Unavailable(c model.Category) bool {
	return c.Valid() && s.unavailable[c]
}

// rescan lists category c, keeps active entities and replaces the snapshot.
// Registry failures leave an empty snapshot; the next scheduled pass retries.
func (s *Scanner) rescan(c model.Category, now time.Time) {
	entries, err := s.list(c)
	if err != nil {
		if !s.unavailable[c] {
			slog.Warn("category unavailable, treating as empty", "category", c, "err", err)
		} else {
			s.failLog[c].Do(func() {
				slog.Debug("category still unavailable", "category", c, "err", err)
			})
		}
		s.unavailable[c] = true
		s.store(c, nil, now)
		return
	}

	if s.unavailable[c] {
		slog.Info("category available again", "category", c)
		s.unavailable[c] = false
	}

	entities := make([]model.WorldEntity, 0, len(entries))
	for _, e := range entries {
		if !e.Active {
			continue
		}
		entities = append(entities, model.WorldEntity{
			Category:    c,
			ID:          e.ID,
			Position:    e.Position,
			Alive:       true,
			TemplateKey: e.TemplateKey,
		})
	}
	s.store(c, entities, now)
}

// list calls the registry, converting a panic into an error.
func (s *Scanner) list(c model.Category) (entries []RegistryEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry panic: %v", r)
		}
	}()
	return s.registry.ListLive(c)
}

// store replaces the snapshot of c wholesale and logs the membership diff.
func (s *Scanner) store(c model.Category, entities []model.WorldEntity, now time.Time) {
	s.generation++

	next := mapset.New[model.EntityID]()
	added := 0
	for _, e := range entities {
		next.Put(e.ID)
		if !s.ids[c].Has(e.ID) {
			added++
		}
	}
	removed := 0
	s.ids[c].Each(func(id model.EntityID) {
		if !next.Has(id) {
			removed++
		}
	})
	s.ids[c] = next

	s.snapshots[c] = model.CategorySnapshot{
		Category:   c,
		Generation: s.generation,
		ScannedAt:  now,
		Entities:   entities,
	}

	if added > 0 || removed > 0 {
		slog.Debug("snapshot changed",
			"category", c,
			"generation", s.generation,
			"entities", len(entities),
			"added", added,
			"removed", removed)
	}
}
