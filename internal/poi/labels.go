package poi

import (
	"fmt"
	"os"

	"github.com/leonelquinteros/gotext"
)

// Message ids. Untranslated ids are used verbatim as format strings.
const (
	msgSynthName  = "%s %d"
	msgEntry      = "%s, %d meters, %s"
	msgPath       = ", path %d meters"
	msgApprox     = ", approximate"
	msgNone       = "No %s nearby"
	msgClock      = "%d o'clock"
	msgAhead      = "ahead"
	msgCategory   = "%s, %d found"
	msgNoCategory = "%s, none found"
)

// Labels localizes list labels and announcements through a gettext catalog.
type Labels struct {
	po *gotext.Po
}

// NewLabels returns labels without translations (message ids are used as is).
func NewLabels() *Labels {
	return &Labels{po: gotext.NewPo()}
}

// LoadLabels reads a .po catalog. An empty path gives untranslated labels.
func LoadLabels(path string) (*Labels, error) {
	l := NewLabels()
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	l.po.Parse(data)
	return l, nil
}

// ParseLabels builds labels from .po content.
func ParseLabels(po []byte) *Labels {
	l := NewLabels()
	l.po.Parse(po)
	return l
}

// Get translates msgid and formats it with vars.
func (l *Labels) Get(msgid string, vars ...any) string {
	if l == nil || l.po == nil {
		return fmt.Sprintf(msgid, vars...)
	}
	return l.po.Get(msgid, vars...)
}
