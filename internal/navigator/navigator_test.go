package navigator

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wayfinder/internal/audio"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/gate"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/poi"
	"github.com/udisondev/wayfinder/internal/proximity"
	"github.com/udisondev/wayfinder/internal/world"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// player is a settable pose provider.
type player struct {
	position mgl64.Vec3
	facing   mgl64.Vec3
	broken   bool
}

func (p *player) CurrentPosition() mgl64.Vec3 {
	if p.broken {
		panic("player object released")
	}
	return p.position
}

func (p *player) CurrentFacing() mgl64.Vec3 { return p.facing }

type mockSpeaker struct {
	mock.Mock
}

func (m *mockSpeaker) Say(text string) {
	m.Called(text)
}

type fixture struct {
	engine   *Engine
	registry *world.ECSRegistry
	mixer    *audio.Mixer
	player   *player
	signals  *gate.Signals
	speaker  *mockSpeaker
}

func newFixture(t *testing.T, cfg config.Config, mutate func(*Deps)) *fixture {
	t.Helper()

	mixer, err := audio.NewMixer(8000, 1)
	require.NoError(t, err)

	f := &fixture{
		registry: world.NewECSRegistry(),
		mixer:    mixer,
		player:   &player{facing: mgl64.Vec3{0, 0, 1}},
		signals:  &gate.Signals{},
		speaker:  &mockSpeaker{},
	}
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	deps := Deps{
		Registry: f.registry,
		Signals:  gate.SignalFunc(func() gate.Signals { return *f.signals }),
		Pose:     f.player,
		Backend:  mixer,
		Speaker:  f.speaker,
		Now:      clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}

	f.engine, err = New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(f.engine.Shutdown)
	return f
}

// pass runs enough ticks for one full scanner pass.
func (f *fixture) pass() {
	for range model.NumCategories {
		f.engine.Tick()
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.SampleRate = 0

	_, err := New(cfg, Deps{Registry: world.NewECSRegistry(), Pose: &player{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, err = New(config.Default(), Deps{Pose: &player{}})
	assert.Error(t, err, "registry is required")

	_, err = New(config.Default(), Deps{Registry: world.NewECSRegistry()})
	assert.Error(t, err, "pose provider is required")
}

func TestTickDrivesCues(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{5, 0, 0}, ""))

	f.pass()

	assert.Equal(t, model.ControlField, f.engine.State())
	cue := f.engine.Cue(model.CategoryNPC)
	require.True(t, cue.HasTarget)
	assert.Equal(t, model.EntityID(1), cue.Target)
	assert.InDelta(t, 1.0, cue.Pan, 1e-9, "target at +X is hard right")
	assert.True(t, f.mixer.Voice(model.CategoryNPC).Playing)
	assert.False(t, f.mixer.Voice(model.CategoryItem).Playing)
}

func TestBattleSuspendsAndRescans(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	f.pass()
	require.True(t, f.mixer.Voice(model.CategoryNPC).Playing)

	f.signals.Battle = true
	f.engine.Tick()
	assert.Equal(t, model.ControlBattle, f.engine.State())
	assert.False(t, f.mixer.Voice(model.CategoryNPC).Playing)
	assert.Zero(t, f.mixer.ActiveVoices())

	// Spawned mid-battle; the idle interval never elapses on the frozen clock,
	// so only the battle-ended rescan can pick it up.
	require.NoError(t, f.registry.SpawnWithID(2, model.CategoryItem, mgl64.Vec3{0, 0, 3}, ""))
	f.pass()
	assert.True(t, f.engine.Snapshot(model.CategoryItem).Empty())

	f.signals.Battle = false
	f.pass()
	assert.Equal(t, model.ControlField, f.engine.State())
	_, ok := f.engine.Snapshot(model.CategoryItem).Find(2)
	assert.True(t, ok)
	assert.True(t, f.mixer.Voice(model.CategoryNPC).Playing)
	assert.True(t, f.mixer.Voice(model.CategoryItem).Playing)
}

func TestBattleEndingThroughMenuRescans(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	f.pass()

	f.signals.Battle = true
	f.engine.Tick()
	require.Equal(t, model.ControlBattle, f.engine.State())

	// Results panel between battle and field.
	f.signals.Battle = false
	f.signals.Menu = true
	f.engine.Tick()
	require.Equal(t, model.ControlMenu, f.engine.State())

	require.NoError(t, f.registry.SpawnWithID(2, model.CategoryItem, mgl64.Vec3{0, 0, 3}, ""))
	f.pass()
	assert.True(t, f.engine.Snapshot(model.CategoryItem).Empty(), "no rescan before control returns")

	f.signals.Menu = false
	f.pass()
	assert.Equal(t, model.ControlField, f.engine.State())
	_, ok := f.engine.Snapshot(model.CategoryItem).Find(2)
	assert.True(t, ok)

	// The flag is consumed: a plain menu round trip does not rescan.
	require.NoError(t, f.registry.SpawnWithID(3, model.CategoryItem, mgl64.Vec3{0, 0, 6}, ""))
	f.signals.Menu = true
	f.engine.Tick()
	f.signals.Menu = false
	f.pass()
	_, ok = f.engine.Snapshot(model.CategoryItem).Find(3)
	assert.False(t, ok)
}

func TestAreaChanged(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	f.pass()
	require.True(t, f.engine.Cue(model.CategoryNPC).HasTarget)

	f.registry.Clear()
	require.NoError(t, f.registry.SpawnWithID(7, model.CategoryFacility, mgl64.Vec3{-3, 0, 0}, ""))
	f.engine.AreaChanged()

	assert.True(t, f.engine.Snapshot(model.CategoryNPC).Empty(), "old area entities are dropped")
	assert.False(t, f.engine.Cue(model.CategoryNPC).HasTarget)

	f.pass()
	assert.False(t, f.mixer.Voice(model.CategoryNPC).Playing)
	cue := f.engine.Cue(model.CategoryFacility)
	require.True(t, cue.HasTarget)
	assert.Equal(t, model.EntityID(7), cue.Target)
	assert.Less(t, cue.Pan, 0.0)
}

func TestListSurface(t *testing.T) {
	names := poi.NewNames()
	names.AddPrimary(model.CategoryNPC, 12, "Blacksmith")

	f := newFixture(t, config.Default(), func(d *Deps) { d.Names = names })
	require.NoError(t, f.registry.SpawnWithID(12, model.CategoryNPC, mgl64.Vec3{0, 0, 5}, ""))
	require.NoError(t, f.registry.SpawnWithID(13, model.CategoryNPC, mgl64.Vec3{0, 0, -8}, ""))
	f.pass()

	f.speaker.On("Say", "Blacksmith, 5 meters, ahead").Once()
	assert.Equal(t, "Blacksmith, 5 meters, ahead", f.engine.AnnounceCurrent())

	cur := f.engine.CycleItem(+1)
	assert.Equal(t, poi.Cursor{Category: model.CategoryNPC, Index: 1}, cur)
	e, ok := f.engine.CurrentEntry()
	require.True(t, ok)
	assert.Equal(t, "NPC 2", e.Name)

	cur = f.engine.CycleCategory(-1)
	assert.Equal(t, model.CategoryFacility, cur.Category)
	assert.Equal(t, poi.NoSelection, cur.Index)

	f.speaker.On("Say", "No Facility nearby").Once()
	assert.Equal(t, "No Facility nearby", f.engine.AnnounceCurrent())

	f.speaker.On("Say", "Facility, none found").Once()
	f.engine.AnnounceCategory()

	f.speaker.AssertExpectations(t)
}

func TestListFollowsPose(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 5}, ""))
	f.pass()

	f.player.position = mgl64.Vec3{0, 0, 10}
	f.engine.RefreshList()
	e, ok := f.engine.CurrentEntry()
	require.True(t, ok)
	assert.InDelta(t, 5.0, e.Distance, 1e-9)
	assert.InDelta(t, 3.14159, abs(e.Bearing), 1e-3, "target now behind")
}

func TestListDropsDespawnedEntity(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(20, model.CategoryItem, mgl64.Vec3{0, 0, 5}, ""))
	f.pass()

	cur := f.engine.CycleCategory(+1)
	require.Equal(t, poi.Cursor{Category: model.CategoryItem, Index: 0}, cur)

	f.registry.Despawn(20)
	f.engine.Tick()
	assert.False(t, f.engine.Cue(model.CategoryItem).HasTarget)

	_, ok := f.engine.CurrentEntry()
	assert.False(t, ok, "selected entry is dropped on next use")

	f.speaker.On("Say", "No Item nearby").Once()
	assert.Equal(t, "No Item nearby", f.engine.AnnounceCurrent())
	f.speaker.AssertExpectations(t)
}

func TestListUsesLivePositions(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	require.NoError(t, f.registry.SpawnWithID(2, model.CategoryNPC, mgl64.Vec3{0, 0, 8}, ""))
	require.NoError(t, f.registry.SpawnWithID(3, model.CategoryNPC, mgl64.Vec3{0, 0, 9}, ""))
	f.pass()

	// Snapshot still says 4 m; the registry already knows better.
	f.registry.Move(1, mgl64.Vec3{-6, 0, 0})
	f.registry.SetActive(2, false)
	f.engine.RefreshList()

	e, ok := f.engine.CurrentEntry()
	require.True(t, ok)
	assert.Equal(t, model.EntityID(1), e.Entity.ID)
	assert.InDelta(t, 6.0, e.Distance, 1e-9)
	assert.Less(t, e.Bearing, 0.0, "moved to the left")

	cur := f.engine.CycleItem(+1)
	assert.Equal(t, 1, cur.Index)
	f.registry.Despawn(3)
	_, ok = f.engine.CurrentEntry()
	assert.True(t, ok)
	assert.Equal(t, 0, f.engine.list.Cursor().Index, "cursor falls back to the remaining entry")
}

// enemyFailingMixer refuses to start the Enemy loop.
type enemyFailingMixer struct {
	*audio.Mixer
}

func (m enemyFailingMixer) StartLoop(c model.Category, tone audio.Tone, pan, volume float64) error {
	if c == model.CategoryEnemy {
		return audio.ErrDeviceUnavailable
	}
	return m.Mixer.StartLoop(c, tone, pan, volume)
}

func TestBackendFailureSilencesEveryLoop(t *testing.T) {
	f := newFixture(t, config.Default(), func(d *Deps) {
		d.Backend = enemyFailingMixer{Mixer: d.Backend.(*audio.Mixer)}
	})
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	require.NoError(t, f.registry.SpawnWithID(2, model.CategoryEnemy, mgl64.Vec3{3, 0, 0}, ""))

	// NPC is scanned on the first tick, Enemy on the third.
	f.engine.Tick()
	f.engine.Tick()
	require.True(t, f.mixer.Voice(model.CategoryNPC).Playing)
	require.True(t, f.engine.AudioEnabled())

	f.engine.Tick()
	assert.False(t, f.engine.AudioEnabled())
	assert.False(t, f.mixer.Voice(model.CategoryNPC).Playing, "healthy loops stop with the failing one")
	assert.Zero(t, f.mixer.ActiveVoices())
	assert.False(t, f.engine.Cue(model.CategoryNPC).Active)

	f.signals.Battle = true
	for range 5 {
		f.engine.Tick()
	}
	f.signals.Battle = false
	f.pass()
	assert.Zero(t, f.mixer.ActiveVoices())
	assert.True(t, f.engine.Cue(model.CategoryNPC).HasTarget)
}

const room = `
#####
#...#
#...#
#...#
#####
`

func TestWallCuesAndPathDistance(t *testing.T) {
	grid, err := geo.ParseLayout(room, 1, mgl64.Vec3{})
	require.NoError(t, err)

	f := newFixture(t, config.Default(), func(d *Deps) {
		d.Mesh = grid
		d.Prober = grid
	})
	f.player.position = mgl64.Vec3{2.5, 0, 1.5}
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{2.5, 0, 3.5}, ""))

	f.engine.Tick()
	assert.Empty(t, f.engine.WallEvents(), "first probe only primes")

	f.player.position = mgl64.Vec3{2.5, 0, 3.5}
	f.engine.Tick()
	assert.Equal(t, []proximity.WallCueEvent{{Direction: proximity.WallForward, Pan: 0}}, f.engine.WallEvents())
	assert.Equal(t, 1, f.mixer.PendingOneShots())

	f.engine.Tick()
	assert.Empty(t, f.engine.WallEvents(), "held contact does not repeat")

	f.player.position = mgl64.Vec3{2.5, 0, 1.5}
	f.engine.RefreshList()
	e, ok := f.engine.CurrentEntry()
	require.True(t, ok)
	assert.True(t, e.HasPath)
	assert.False(t, e.Degraded)
	assert.InDelta(t, 2.0, e.PathDistance, 1e-9)
}

func TestWallCuesDisabled(t *testing.T) {
	grid, err := geo.ParseLayout(room, 1, mgl64.Vec3{})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Audio.Wall.Enabled = false
	f := newFixture(t, cfg, func(d *Deps) { d.Prober = grid })

	f.player.position = mgl64.Vec3{2.5, 0, 1.5}
	f.engine.Tick()
	f.player.position = mgl64.Vec3{2.5, 0, 3.5}
	f.engine.Tick()
	assert.Empty(t, f.engine.WallEvents())
}

func TestPoseProviderPanicKeepsLastPose(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{3, 0, 0}, ""))
	f.pass()
	before := f.engine.Cue(model.CategoryNPC)

	f.player.broken = true
	assert.NotPanics(t, func() { f.engine.Tick() })
	assert.Equal(t, before.Pan, f.engine.Cue(model.CategoryNPC).Pan)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, config.Default(), nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	f.pass()
	require.True(t, f.mixer.Voice(model.CategoryNPC).Playing)

	f.engine.Shutdown()
	assert.Zero(t, f.mixer.ActiveVoices())

	_, err := f.mixer.Read(make([]byte, 64))
	assert.Error(t, err, "backend closed")

	assert.NotPanics(t, func() {
		f.engine.Tick()
		f.engine.AreaChanged()
		f.engine.Shutdown()
	})
}

func TestAudioDisabledUsesNop(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Enabled = false
	f := newFixture(t, cfg, nil)
	require.NoError(t, f.registry.SpawnWithID(1, model.CategoryNPC, mgl64.Vec3{0, 0, 4}, ""))
	f.pass()

	assert.True(t, f.engine.Cue(model.CategoryNPC).HasTarget)
	assert.False(t, f.mixer.Voice(model.CategoryNPC).Playing, "mixer is bypassed")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
