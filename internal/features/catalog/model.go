package catalog

// FieldType is the semantic type of a reportable attribute.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
)

// FieldDescriptor describes one reportable attribute of an entity.
type FieldDescriptor struct {
	Name         string    `json:"name"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	Filterable   bool      `json:"filterable"`
	Aggregatable bool      `json:"aggregatable"`
}

// EntityDescriptor is a whitelisted, reportable business object. Instances are
// built once at startup and never mutated afterwards, so they are safe for
// concurrent reads without locking.
type EntityDescriptor struct {
	Name   string            `json:"name"`
	Label  string            `json:"label"`
	Fields []FieldDescriptor `json:"fields"`

	fieldIndex map[string]int
}

// Field returns the descriptor for name, or false when the entity has no such field.
func (e *EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	i, ok := e.fieldIndex[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return e.Fields[i], true
}

// HasField reports whether the entity exposes the named field.
func (e *EntityDescriptor) HasField(name string) bool {
	_, ok := e.fieldIndex[name]
	return ok
}
