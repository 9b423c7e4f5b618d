package importer

// Section names a project template section.
type Section string

const (
	SectionRoles     Section = "roles"
	SectionResources Section = "resources"
	SectionForms     Section = "forms"
	SectionActions   Section = "actions"

	CollectionRole   = "role"
	CollectionForm   = "form"
	CollectionAction = "action"

	// IDField carries the generated identifier inside created definitions.
	IDField = "_id"
)

// Entity is a created template entity.
type Entity struct {
	ID         string         `json:"id"`
	Definition map[string]any `json:"definition"`
}

// Project is the materialized project template: every definition carries its
// generated identifier and every name reference is rewritten to an identifier.
type Project struct {
	Title       string `json:"title,omitempty"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Roles     map[string]Entity `json:"roles"`
	Resources map[string]Entity `json:"resources"`
	Forms     map[string]Entity `json:"forms"`
	Actions   map[string]Entity `json:"actions"`
}

func newProject() *Project {
	return &Project{
		Roles:     make(map[string]Entity),
		Resources: make(map[string]Entity),
		Forms:     make(map[string]Entity),
		Actions:   make(map[string]Entity),
	}
}

// Section returns the entities of one section.
func (p *Project) Section(s Section) map[string]Entity {
	switch s {
	case SectionRoles:
		return p.Roles
	case SectionResources:
		return p.Resources
	case SectionForms:
		return p.Forms
	case SectionActions:
		return p.Actions
	}
	return nil
}

// Lookup finds a created entity by section and template name.
func (p *Project) Lookup(s Section, name string) (Entity, bool) {
	e, ok := p.Section(s)[name]
	return e, ok
}

// Count returns the number of created entities across all sections.
func (p *Project) Count() int {
	return len(p.Roles) + len(p.Resources) + len(p.Forms) + len(p.Actions)
}
