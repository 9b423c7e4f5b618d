package importer

import (
	"errors"
	"fmt"
)

// ErrUnresolvedReference matches every *UnresolvedReferenceError.
var ErrUnresolvedReference = errors.New("unresolved reference")

// UnresolvedReferenceError reports a name that does not match any entity
// created in an earlier section.
type UnresolvedReferenceError struct {
	Section Section
	Entity  string
	Name    string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s %q references %q, which is not defined in an earlier section", e.Section, e.Entity, e.Name)
}

func (e *UnresolvedReferenceError) Is(target error) bool {
	return target == ErrUnresolvedReference
}

// resolver rewrites names to identifiers for one entity.
type resolver struct {
	project *Project
	section Section
	entity  string
}

// id resolves name against the given sections, first match wins.
func (r *resolver) id(name string, in ...Section) (string, error) {
	for _, s := range in {
		if e, ok := r.project.Lookup(s, name); ok {
			return e.ID, nil
		}
	}
	return "", &UnresolvedReferenceError{Section: r.section, Entity: r.entity, Name: name}
}

// ids resolves a list of names. A nil value is left as nil.
func (r *resolver) ids(value any, field string, in ...Section) ([]any, error) {
	if value == nil {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s %q: %s must be a list of names", r.section, r.entity, field)
	}

	out := make([]any, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s %q: %s contains non-string %v", r.section, r.entity, field, item)
		}
		id, err := r.id(name, in...)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func resolveNone(*resolver, map[string]any) error { return nil }

// resolveForm rewrites the role lists of access rules and the resource
// references of components. Resources precede no other resource section, so
// a component reference inside a resource never resolves.
func resolveForm(r *resolver, def map[string]any) error {
	if err := resolveAccess(r, def); err != nil {
		return err
	}
	if r.section == SectionForms {
		return resolveComponents(r, def["components"], SectionResources)
	}
	return resolveComponents(r, def["components"])
}

func resolveAccess(r *resolver, def map[string]any) error {
	for _, key := range []string{"access", "submissionAccess"} {
		rules, ok := def[key].([]any)
		if !ok {
			continue
		}
		for _, rule := range rules {
			perm, ok := rule.(map[string]any)
			if !ok {
				continue
			}
			roles, err := r.ids(perm["roles"], key+".roles", SectionRoles)
			if err != nil {
				return err
			}
			if roles != nil {
				perm["roles"] = roles
			}
		}
	}
	return nil
}

// resolveComponents walks nested layout components (columns, rows, panels).
func resolveComponents(r *resolver, value any, in ...Section) error {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if err := resolveComponents(r, item, in...); err != nil {
				return err
			}
		}
	case map[string]any:
		if name, ok := v["resource"].(string); ok && name != "" {
			id, err := r.id(name, in...)
			if err != nil {
				return err
			}
			v["resource"] = id
		}
		for _, key := range []string{"components", "columns", "rows"} {
			if err := resolveComponents(r, v[key], in...); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveAction rewrites the owning form and the role and resource names
// used by action settings.
func resolveAction(r *resolver, def map[string]any) error {
	form, ok := def["form"].(string)
	if !ok || form == "" {
		return fmt.Errorf("%s %q: form is required", r.section, r.entity)
	}
	id, err := r.id(form, SectionForms, SectionResources)
	if err != nil {
		return err
	}
	def["form"] = id

	settings, ok := def["settings"].(map[string]any)
	if !ok {
		return nil
	}

	if err := r.rewrite(settings, "role", SectionRoles); err != nil {
		return err
	}
	if err := r.rewrite(settings, "resource", SectionResources); err != nil {
		return err
	}
	if err := r.rewriteList(settings, "roles", SectionRoles); err != nil {
		return err
	}
	return r.rewriteList(settings, "resources", SectionResources)
}

func (r *resolver) rewrite(m map[string]any, key string, in ...Section) error {
	name, ok := m[key].(string)
	if !ok || name == "" {
		return nil
	}
	id, err := r.id(name, in...)
	if err != nil {
		return err
	}
	m[key] = id
	return nil
}

func (r *resolver) rewriteList(m map[string]any, key string, in ...Section) error {
	ids, err := r.ids(m[key], key, in...)
	if err != nil {
		return err
	}
	if ids != nil {
		m[key] = ids
	}
	return nil
}
