package enrich

import (
	"encoding/json"

	"github.com/sells-group/prospector/pkg/apollo"
)

// Callback payload shapes, in decode priority order.
const (
	ShapeDirect       = "direct"
	ShapePerson       = "person"
	ShapePeople       = "people"
	ShapeUnrecognized = "unrecognized"
)

type wrappedPerson struct {
	Person *apollo.Person `json:"person"`
}

type wrappedPeople struct {
	People []apollo.Person `json:"people"`
}

// ExtractPerson locates a person payload within a provider callback body by
// attempting strict decodes of the known shapes in priority order: a direct
// person object, a {"person": ...} wrapper, then the first plausible entry
// of a {"people": [...]} list. Returns the matched shape name; ok is false
// when no shape yields a plausible person.
func ExtractPerson(raw json.RawMessage) (*apollo.Person, string, bool) {
	var direct apollo.Person
	if err := json.Unmarshal(raw, &direct); err == nil && plausiblePerson(&direct) {
		return &direct, ShapeDirect, true
	}

	var wrapped wrappedPerson
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Person != nil && plausiblePerson(wrapped.Person) {
		return wrapped.Person, ShapePerson, true
	}

	var list wrappedPeople
	if err := json.Unmarshal(raw, &list); err == nil {
		for i := range list.People {
			if plausiblePerson(&list.People[i]) {
				return &list.People[i], ShapePeople, true
			}
		}
	}

	return nil, ShapeUnrecognized, false
}

// plausiblePerson reports whether the decoded object carries at least one
// person-identifying field.
func plausiblePerson(p *apollo.Person) bool {
	return p.ID != "" ||
		p.FirstName != "" ||
		p.LastName != "" ||
		p.Name != "" ||
		p.Email != "" ||
		p.Title != "" ||
		p.LinkedinURL != ""
}
