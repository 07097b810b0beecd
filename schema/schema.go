package schema

// FieldType names a declared value type.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field declares the constraints for one record field.
type Field struct {
	Type      FieldType `yaml:"type"`
	Required  bool      `yaml:"required"`
	Format    string    `yaml:"format"`
	MinLength int       `yaml:"minLength"`
	MaxLength int       `yaml:"maxLength"`
	Pattern   string    `yaml:"pattern"`
	Enum      []any     `yaml:"enum"`
}

// Schema maps field names to their declarations.
type Schema map[string]Field

// FieldTypes returns the field → type-name mapping storage codecs use
// for read-side casting.
func (s Schema) FieldTypes() map[string]string {
	types := make(map[string]string, len(s))
	for name, f := range s {
		types[name] = string(f.Type)
	}
	return types
}
