package entity

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/strata/hook"
	"github.com/jacentio/strata/schema"
	"github.com/jacentio/strata/storage"
)

// SanitizeConfig toggles the sanitizer's scrubbing passes per entity.
type SanitizeConfig struct {
	StripTags      bool `yaml:"stripTags"`
	EscapeEntities bool `yaml:"escapeEntities"`
	BlankSQL       bool `yaml:"blankSQL"`
	StripTraversal bool `yaml:"stripTraversal"`

	// MaxLength truncates string values. Zero or negative disables
	// truncation.
	MaxLength int `yaml:"maxLength"`
}

// DefaultSanitizeConfig strips tags, blanks SQL keywords, removes
// traversal sequences, and truncates at 2048 runes. Entity escaping is
// off.
func DefaultSanitizeConfig() *SanitizeConfig {
	return &SanitizeConfig{
		StripTags:      true,
		BlankSQL:       true,
		StripTraversal: true,
		MaxLength:      2048,
	}
}

// EntityConfig is the per-entity descriptor: schema, storage, defaults,
// validation, sanitization, and hooks. Configs are created once at
// startup and must not be mutated afterwards.
type EntityConfig struct {
	// Name is the entity's target name.
	Name string

	// Schema declares the record fields.
	Schema schema.Schema

	// Defaults are layered under every create payload.
	Defaults map[string]any

	// Storage locates and formats the entity's records.
	Storage storage.Descriptor

	// Validation holds the business-rule pipeline. Nil means none.
	Validation *schema.Pipeline

	// Sanitization overrides the default scrubbing toggles. Nil means
	// DefaultSanitizeConfig.
	Sanitization *SanitizeConfig

	// Hooks holds the lifecycle hook pipeline. Nil means none.
	Hooks *hook.Pipeline

	// MetaDefaults are layered into record.meta between the
	// system-injected fields and the payload's own meta.
	MetaDefaults map[string]any
}

func (c *EntityConfig) sanitization() *SanitizeConfig {
	if c.Sanitization != nil {
		return c.Sanitization
	}
	return DefaultSanitizeConfig()
}

// Registry maps entity names to their configs. It is constructed
// explicitly and injected into the engine; there is no process-wide
// registry.
type Registry struct {
	byName map[string]*EntityConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*EntityConfig)}
}

// Register adds an entity config. Registering an empty name or a name
// twice is an error.
func (r *Registry) Register(cfg *EntityConfig) error {
	if cfg == nil || cfg.Name == "" {
		return errors.New("strata: entity config needs a name")
	}
	if _, exists := r.byName[cfg.Name]; exists {
		return errors.Wrapf(ErrDuplicateConfig, "%q", cfg.Name)
	}
	r.byName[cfg.Name] = cfg
	return nil
}

// Resolve returns the config for name, or nil when unknown. Callers
// must treat nil as a fatal unknown-entity condition.
func (r *Registry) Resolve(name string) *EntityConfig {
	return r.byName[name]
}

// Names returns the registered entity names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
