// Package catalog holds the static registry of known devices and their
// manual locations. The catalog is the source of truth for canonical
// manufacturer and model casing.
package catalog

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/medassist/device-assistant/internal/model"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// catalogFile is the on-disk YAML shape. Manufacturers and models are
// sequences so insertion order survives the round trip.
type catalogFile struct {
	Manufacturers []manufacturerEntry `yaml:"manufacturers"`
}

type manufacturerEntry struct {
	Name   string       `yaml:"name"`
	Models []modelEntry `yaml:"models"`
}

type modelEntry struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
}

// Catalog is the immutable device registry.
type Catalog struct {
	manufacturers []manufacturerEntry
}

// Load reads a catalog from the given YAML path. An empty path loads the
// embedded default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: read %s", path)
		}
		data = b
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal")
	}
	if len(file.Manufacturers) == 0 {
		return nil, eris.New("catalog: no manufacturers defined")
	}

	return &Catalog{manufacturers: file.Manufacturers}, nil
}

// Manufacturers returns all manufacturer names in catalog order.
func (c *Catalog) Manufacturers() []string {
	names := make([]string, len(c.manufacturers))
	for i, m := range c.manufacturers {
		names[i] = m.Name
	}
	return names
}

// Models returns the model names for a manufacturer in catalog order, or nil
// when the manufacturer is not listed. The lookup is case-sensitive: callers
// are expected to hold canonical casing.
func (c *Catalog) Models(manufacturer string) []string {
	for _, m := range c.manufacturers {
		if m.Name != manufacturer {
			continue
		}
		names := make([]string, len(m.Models))
		for i, mod := range m.Models {
			names[i] = mod.Name
		}
		return names
	}
	return nil
}

// Docs looks up the manual record for a device. When the manufacturer/model
// pair misses, it falls back to searching the model across all manufacturers,
// matching the behavior users rely on for model-only free text entry.
func (c *Catalog) Docs(manufacturer, model_ string) (model.ManualRecord, bool) {
	for _, m := range c.manufacturers {
		if m.Name != manufacturer {
			continue
		}
		for _, mod := range m.Models {
			if mod.Name == model_ {
				return record(m.Name, mod), true
			}
		}
	}

	// Model-only fallback across all manufacturers.
	for _, m := range c.manufacturers {
		for _, mod := range m.Models {
			if mod.Name == model_ {
				return record(m.Name, mod), true
			}
		}
	}

	return model.ManualRecord{}, false
}

// CanonicalIdentity resolves a case-insensitive manufacturer/model pair to
// the catalog's canonical casing. Returns false when no exact pair exists.
func (c *Catalog) CanonicalIdentity(manufacturer, model_ string) (model.DeviceIdentity, bool) {
	for _, m := range c.manufacturers {
		if !strings.EqualFold(m.Name, manufacturer) {
			continue
		}
		for _, mod := range m.Models {
			if strings.EqualFold(mod.Name, model_) {
				return model.DeviceIdentity{Manufacturer: m.Name, Model: mod.Name}, true
			}
		}
	}
	return model.DeviceIdentity{}, false
}

// Identities returns every manufacturer/model pair in catalog order.
func (c *Catalog) Identities() []model.DeviceIdentity {
	var out []model.DeviceIdentity
	for _, m := range c.manufacturers {
		for _, mod := range m.Models {
			out = append(out, model.DeviceIdentity{Manufacturer: m.Name, Model: mod.Name})
		}
	}
	return out
}

// ByType groups catalog entries by device type with manual availability.
// HasManual reflects whether any manual location is registered; whether the
// file is actually present locally is the resolver's concern.
func (c *Catalog) ByType() map[model.DeviceType][]model.CatalogEntry {
	out := make(map[model.DeviceType][]model.CatalogEntry)
	for _, m := range c.manufacturers {
		for _, mod := range m.Models {
			dt := model.DeviceType(mod.Type)
			if dt == "" {
				dt = model.DeviceTypeOther
			}
			out[dt] = append(out[dt], model.CatalogEntry{
				Manufacturer: m.Name,
				Model:        mod.Name,
				HasManual:    mod.Local != "" || mod.Remote != "",
			})
		}
	}
	return out
}

func record(manufacturer string, mod modelEntry) model.ManualRecord {
	return model.ManualRecord{
		Device:    model.DeviceIdentity{Manufacturer: manufacturer, Model: mod.Name},
		LocalPath: mod.Local,
		RemoteURL: mod.Remote,
	}
}
