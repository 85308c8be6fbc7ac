package poi

import (
	"math"

	"github.com/udisondev/wayfinder/internal/model"
)

// Announce renders an entry as speech text:
// "<name>, <n> meters, <direction>[, path <n> meters | , approximate]".
// Direction follows the path when a complete one is known.
func (b *Builder) Announce(e Entry) string {
	bearing := e.Bearing
	if e.HasPath {
		bearing = e.PathBearing
	}

	text := b.labels.Get(msgEntry, e.Name, meters(e.Distance), b.ClockDirection(bearing))
	switch {
	case e.HasPath:
		text += b.labels.Get(msgPath, meters(e.PathDistance))
	case e.Degraded:
		text += b.labels.Get(msgApprox)
	}
	return text
}

// AnnounceCurrent describes the selected entry, or the empty category.
func (b *Builder) AnnounceCurrent() string {
	e, ok := b.CurrentEntry()
	if !ok {
		return b.labels.Get(msgNone, b.labels.Get(b.cursor.Category.String()))
	}
	return b.Announce(e)
}

// AnnounceCategory summarizes the active category ("Item, 3 found").
func (b *Builder) AnnounceCategory() string {
	c := b.cursor.Category
	name := b.labels.Get(c.String())
	if n := len(b.entries[c]); n > 0 {
		return b.labels.Get(msgCategory, name, n)
	}
	return b.labels.Get(msgNoCategory, name)
}

// ClockDirection converts a relative bearing to clock-face speech:
// straight ahead is "ahead", 90° right is "3 o'clock", behind is "6 o'clock".
func (b *Builder) ClockDirection(bearing float64) string {
	hour := ClockHour(bearing)
	if hour == 12 {
		return b.labels.Get(msgAhead)
	}
	return b.labels.Get(msgClock, hour)
}

// ClockHour maps a relative bearing to 1..12 (12 = ahead, 3 = right).
func ClockHour(bearing float64) int {
	h := int(math.Round(model.NormalizeAngle(bearing)/(math.Pi/6))) % 12
	if h <= 0 {
		h += 12
	}
	return h
}

func meters(d float64) int {
	return int(math.Round(d))
}
