package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/wayfinder/internal/model"
)

// ErrInvalid marks a configuration that violates engine contracts.
var ErrInvalid = errors.New("invalid configuration")

// Falloff curve kinds.
const (
	FalloffLinear  = "linear"
	FalloffInverse = "inverse"
	FalloffScript  = "script"
)

// Config holds all configuration for the spatial-awareness engine.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Host loop rate of the demo binary (ticks per second).
	TickRate int `yaml:"tick_rate"`

	Scanner    ScannerConfig    `yaml:"scanner"`
	Categories CategoriesConfig `yaml:"categories"`
	Audio      AudioConfig      `yaml:"audio"`
	Navigation NavigationConfig `yaml:"navigation"`
	Names      NamesConfig      `yaml:"names"`
	Locale     LocaleConfig     `yaml:"locale"`
	Speech     SpeechConfig     `yaml:"speech"`
	Database   DatabaseConfig   `yaml:"database"`
}

// ScannerConfig controls rescan cadence.
type ScannerConfig struct {
	WindowDuration time.Duration `yaml:"window_duration"` // rescan window after area change
	WindowInterval time.Duration `yaml:"window_interval"` // pause between passes inside the window
	IdleInterval   time.Duration `yaml:"idle_interval"`   // pause between passes outside the window
}

// CategoriesConfig holds per-category settings, one field per model.Category.
type CategoriesConfig struct {
	NPC        CategoryConfig `yaml:"npc"`
	Item       CategoryConfig `yaml:"item"`
	Enemy      CategoryConfig `yaml:"enemy"`
	Transition CategoryConfig `yaml:"transition"`
	Facility   CategoryConfig `yaml:"facility"`
}

// Get returns a pointer to the settings of category c (nil for unknown c).
func (cc *CategoriesConfig) Get(c model.Category) *CategoryConfig {
	switch c {
	case model.CategoryNPC:
		return &cc.NPC
	case model.CategoryItem:
		return &cc.Item
	case model.CategoryEnemy:
		return &cc.Enemy
	case model.CategoryTransition:
		return &cc.Transition
	case model.CategoryFacility:
		return &cc.Facility
	}
	return nil
}

// Table returns the settings as an array indexed by category.
func (cc *CategoriesConfig) Table() [model.NumCategories]CategoryConfig {
	var t [model.NumCategories]CategoryConfig
	for _, c := range model.AllCategories() {
		t[c] = *cc.Get(c)
	}
	return t
}

// CategoryConfig is the proximity cue setup of one category.
type CategoryConfig struct {
	Enabled   bool    `yaml:"enabled"`
	MaxRange  float64 `yaml:"max_range"`  // beyond this distance no cue
	NearRange float64 `yaml:"near_range"` // full volume at or below this distance
	Volume    float64 `yaml:"volume"`     // category gain, 0..1

	Falloff       string `yaml:"falloff"`        // linear | inverse | script
	FalloffScript string `yaml:"falloff_script"` // Lua chunk defining falloff(d, near, far)

	// Lower value wins a voice when max_voices is exceeded.
	Priority int `yaml:"priority"`

	Tone ToneConfig `yaml:"tone"`
}

// ToneConfig describes the synthesized loop of a category.
type ToneConfig struct {
	Waveform      string        `yaml:"waveform"` // sine | square | triangle
	Frequency     float64       `yaml:"frequency"`
	PulseInterval time.Duration `yaml:"pulse_interval"` // 0 = continuous
	PulseWidth    time.Duration `yaml:"pulse_width"`
}

// AudioConfig holds mixer and wall cue settings.
type AudioConfig struct {
	Enabled      bool       `yaml:"enabled"`
	SampleRate   int        `yaml:"sample_rate"`
	MasterVolume float64    `yaml:"master_volume"`
	MaxVoices    int        `yaml:"max_voices"` // 0 = one voice per category
	Wall         WallConfig `yaml:"wall"`
}

// WallConfig holds wall-collision probe settings.
type WallConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ProbeDistance float64       `yaml:"probe_distance"`
	Volume        float64       `yaml:"volume"`
	Frequency     float64       `yaml:"frequency"`
	Duration      time.Duration `yaml:"duration"`
}

// NavigationConfig holds POI list settings.
type NavigationConfig struct {
	PathDistance bool    `yaml:"path_distance"` // query nav mesh for the selected entry
	PathEpsilon  float64 `yaml:"path_epsilon"`  // waypoints closer than this to source are skipped for bearing
}

// NamesConfig points to the POI name tables.
type NamesConfig struct {
	File string `yaml:"file"` // YAML name tables; empty = none
}

// LocaleConfig points to the gettext catalog for labels and announcements.
type LocaleConfig struct {
	PoFile string `yaml:"po_file"`
}

// SpeechConfig configures the text-output bridge.
type SpeechConfig struct {
	WebSocketAddr string `yaml:"websocket_addr"` // empty = log only
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// defaultCategory returns a linear-falloff category with the given range and tone.
func defaultCategory(maxRange float64, priority int, waveform string, freq float64, pulse time.Duration) CategoryConfig {
	return CategoryConfig{
		Enabled:   true,
		MaxRange:  maxRange,
		NearRange: 2,
		Volume:    0.8,
		Falloff:   FalloffLinear,
		Priority:  priority,
		Tone: ToneConfig{
			Waveform:      waveform,
			Frequency:     freq,
			PulseInterval: pulse,
			PulseWidth:    pulse / 3,
		},
	}
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		TickRate: 60,
		Scanner: ScannerConfig{
			WindowDuration: 5 * time.Second,
			WindowInterval: 250 * time.Millisecond,
			IdleInterval:   3 * time.Second,
		},
		Categories: CategoriesConfig{
			NPC:        defaultCategory(20, 2, "sine", 440, 600*time.Millisecond),
			Item:       defaultCategory(20, 3, "triangle", 880, 400*time.Millisecond),
			Enemy:      defaultCategory(25, 0, "square", 220, 300*time.Millisecond),
			Transition: defaultCategory(40, 1, "sine", 660, 900*time.Millisecond),
			Facility:   defaultCategory(30, 4, "triangle", 550, 1200*time.Millisecond),
		},
		Audio: AudioConfig{
			Enabled:      true,
			SampleRate:   44100,
			MasterVolume: 0.9,
			MaxVoices:    0,
			Wall: WallConfig{
				Enabled:       true,
				ProbeDistance: 1.0,
				Volume:        0.7,
				Frequency:     180,
				Duration:      80 * time.Millisecond,
			},
		},
		Navigation: NavigationConfig{
			PathDistance: true,
			PathEpsilon:  0.25,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "wayfinder",
			Password: "wayfinder",
			DBName:   "wayfinder",
			SSLMode:  "disable",
		},
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks contract violations: negative or inverted ranges, unknown curves,
// non-positive sample rate and intervals. All violations are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate must be positive, got %d", c.TickRate))
	}
	if c.Scanner.WindowDuration < 0 {
		errs = append(errs, fmt.Errorf("scanner.window_duration must be >= 0, got %s", c.Scanner.WindowDuration))
	}
	if c.Scanner.WindowInterval < 0 || c.Scanner.IdleInterval <= 0 {
		errs = append(errs, fmt.Errorf("scanner intervals must be positive (window %s, idle %s)",
			c.Scanner.WindowInterval, c.Scanner.IdleInterval))
	}

	for _, cat := range model.AllCategories() {
		cc := c.Categories.Get(cat)
		if err := cc.validate(); err != nil {
			errs = append(errs, fmt.Errorf("categories.%s: %w", cat.Key(), err))
		}
	}

	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.MaxVoices < 0 {
		errs = append(errs, fmt.Errorf("audio.max_voices must be >= 0, got %d", c.Audio.MaxVoices))
	}
	if c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1 {
		errs = append(errs, fmt.Errorf("audio.master_volume must be in [0,1], got %g", c.Audio.MasterVolume))
	}
	if c.Audio.Wall.Enabled && c.Audio.Wall.ProbeDistance <= 0 {
		errs = append(errs, fmt.Errorf("audio.wall.probe_distance must be positive, got %g", c.Audio.Wall.ProbeDistance))
	}
	if c.Navigation.PathEpsilon < 0 {
		errs = append(errs, fmt.Errorf("navigation.path_epsilon must be >= 0, got %g", c.Navigation.PathEpsilon))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (cc *CategoryConfig) validate() error {
	if cc.MaxRange < 0 || cc.NearRange < 0 {
		return fmt.Errorf("ranges must be >= 0 (near %g, max %g)", cc.NearRange, cc.MaxRange)
	}
	if cc.Enabled && cc.NearRange >= cc.MaxRange {
		return fmt.Errorf("near_range %g must be below max_range %g", cc.NearRange, cc.MaxRange)
	}
	if cc.Volume < 0 || cc.Volume > 1 {
		return fmt.Errorf("volume must be in [0,1], got %g", cc.Volume)
	}
	switch cc.Falloff {
	case "", FalloffLinear, FalloffInverse:
	case FalloffScript:
		if cc.FalloffScript == "" {
			return errors.New("falloff_script is required for script falloff")
		}
	default:
		return fmt.Errorf("unknown falloff %q", cc.Falloff)
	}
	if cc.Tone.Frequency < 0 {
		return fmt.Errorf("tone.frequency must be >= 0, got %g", cc.Tone.Frequency)
	}
	return nil
}
