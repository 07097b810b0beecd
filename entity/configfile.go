package entity

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/strata/schema"
	"github.com/jacentio/strata/storage"
)

// configFile is the YAML layout of a registry definition. Hooks and
// business rules are code, not data; they are attached programmatically
// after loading.
type configFile struct {
	Entities []entityConfigYAML `yaml:"entities"`
}

type entityConfigYAML struct {
	Name         string           `yaml:"name"`
	Schema       schema.Schema    `yaml:"schema"`
	Defaults     map[string]any   `yaml:"defaults"`
	Storage      storageYAML      `yaml:"storage"`
	Sanitization *SanitizeConfig  `yaml:"sanitization"`
	Messages     *schema.Messages `yaml:"messages"`
	MetaDefaults map[string]any   `yaml:"metaDefaults"`
}

type storageYAML struct {
	Driver   string   `yaml:"driver"`
	Path     string   `yaml:"path"`
	File     string   `yaml:"file"`
	Format   string   `yaml:"format"`
	Headers  []string `yaml:"headers"`
	KeyField string   `yaml:"keyField"`
}

// ParseRegistry builds a registry from a YAML definition.
func ParseRegistry(data []byte) (*Registry, error) {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "strata: parse registry config")
	}

	registry := NewRegistry()
	for _, ec := range file.Entities {
		cfg, err := ec.toConfig()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(cfg); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// LoadRegistry reads and parses a registry definition file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "strata: read registry config %s", path)
	}
	return ParseRegistry(data)
}

func (ec entityConfigYAML) toConfig() (*EntityConfig, error) {
	kind := storage.KindFile
	if ec.Storage.Driver != "" {
		var err error
		kind, err = storage.ParseKind(ec.Storage.Driver)
		if err != nil {
			return nil, err
		}
	}

	cfg := &EntityConfig{
		Name:     ec.Name,
		Schema:   ec.Schema,
		Defaults: ec.Defaults,
		Storage: storage.Descriptor{
			Driver:   kind,
			Path:     ec.Storage.Path,
			File:     ec.Storage.File,
			Format:   storage.Format(ec.Storage.Format),
			Headers:  ec.Storage.Headers,
			KeyField: ec.Storage.KeyField,
		},
		Sanitization: ec.Sanitization,
		MetaDefaults: ec.MetaDefaults,
	}
	if ec.Messages != nil {
		cfg.Validation = &schema.Pipeline{Messages: *ec.Messages}
	}
	return cfg, nil
}
