package models

// SystemPersonaID is the reserved id of the built-in assistant persona.
// It is seeded at store initialization, always public, and owned by no one.
const SystemPersonaID int64 = 0

// Persona is a named instruction profile injected as the system directive
// for generation. CreatorID never changes after creation.
type Persona struct {
	ID           int64  `json:"id"`
	CreatorID    int64  `json:"creator_id"`
	IsPublic     bool   `json:"is_public"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Instructions string `json:"instructions"`
}

// SystemPersona is the compiled-in copy of the default persona. The store
// seeds the same record; this value is the fallback when even that read fails.
var SystemPersona = Persona{
	ID:           SystemPersonaID,
	CreatorID:    0,
	IsPublic:     true,
	Name:         "Assistant",
	Description:  "The default helpful assistant.",
	Instructions: "You are a helpful assistant.",
}

// PersonaField enumerates the free-text persona columns a creator may edit.
// Visibility is not listed here: it is a toggle, not a value assignment.
type PersonaField int

const (
	FieldName PersonaField = iota
	FieldDescription
	FieldInstructions
)

// Column returns the store column backing the field.
func (f PersonaField) Column() string {
	switch f {
	case FieldName:
		return "name"
	case FieldDescription:
		return "description"
	case FieldInstructions:
		return "instructions"
	}
	return ""
}

func (f PersonaField) String() string { return f.Column() }
