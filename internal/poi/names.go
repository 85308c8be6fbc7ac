package poi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/wayfinder/internal/model"
)

// Names holds the POI name tables.
// Primary maps (category, id) to a name; secondary maps a template key to a name.
type Names struct {
	primary   [model.NumCategories]map[model.EntityID]string
	secondary map[string]string
}

// NewNames creates empty name tables.
func NewNames() *Names {
	n := &Names{secondary: make(map[string]string)}
	for _, c := range model.AllCategories() {
		n.primary[c] = make(map[model.EntityID]string)
	}
	return n
}

// AddPrimary sets the name of a specific entity.
func (n *Names) AddPrimary(c model.Category, id model.EntityID, name string) {
	if !c.Valid() || name == "" {
		return
	}
	n.primary[c][id] = name
}

// AddSecondary sets the name shared by every entity with the given template key.
func (n *Names) AddSecondary(templateKey, name string) {
	if templateKey == "" || name == "" {
		return
	}
	n.secondary[templateKey] = name
}

// Resolve looks the entity up in the primary table, then by template key.
func (n *Names) Resolve(e model.WorldEntity) (string, bool) {
	if n == nil {
		return "", false
	}
	if e.Category.Valid() {
		if name, ok := n.primary[e.Category][e.ID]; ok {
			return name, true
		}
	}
	if e.TemplateKey != "" {
		if name, ok := n.secondary[e.TemplateKey]; ok {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of entries in both tables.
func (n *Names) Len() int {
	total := len(n.secondary)
	for _, m := range n.primary {
		total += len(m)
	}
	return total
}

// nameFile is the YAML layout of a name tables file:
//
//	primary:
//	  npc:
//	    12: Blacksmith
//	secondary:
//	  goblin_scout: Goblin scout
type nameFile struct {
	Primary   map[string]map[uint64]string `yaml:"primary"`
	Secondary map[string]string            `yaml:"secondary"`
}

// LoadNames reads name tables from a YAML file.
// If the file doesn't exist, returns empty tables.
func LoadNames(path string) (*Names, error) {
	n := NewNames()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return n, nil
		}
		return nil, fmt.Errorf("reading names %s: %w", path, err)
	}

	var f nameFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing names %s: %w", path, err)
	}

	for key, ids := range f.Primary {
		c, err := model.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("names %s: %w", path, err)
		}
		for id, name := range ids {
			n.AddPrimary(c, model.EntityID(id), name)
		}
	}
	for key, name := range f.Secondary {
		n.AddSecondary(key, name)
	}
	return n, nil
}
