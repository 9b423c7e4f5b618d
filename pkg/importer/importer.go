package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/mitchellh/copystructure"
	"github.com/systemstart/formio-install/pkg/api"
)

// ErrCreateFailed wraps errors returned by the Creator.
var ErrCreateFailed = errors.New("entity creation failed")

// Creator persists one entity in a collection and returns its generated identifier.
type Creator interface {
	Create(ctx context.Context, collection string, doc map[string]any) (string, error)
}

type sectionPlan struct {
	section    Section
	collection string
	defs       map[string]api.Definition
	resolve    func(*resolver, map[string]any) error
}

// Importer materializes project templates against a Creator.
type Importer struct {
	creator Creator
}

// New creates an Importer.
func New(creator Creator) *Importer {
	return &Importer{creator: creator}
}

// Import creates roles, resources, forms and actions in that order, rewriting
// name references to the identifiers of entities created before them.
//
// Import does not roll back. When it fails part way, entities created so far
// stay in the data platform and the whole import has to be cleaned up or
// re-run against a fresh store.
func (i *Importer) Import(ctx context.Context, t *api.ProjectTemplate) (*Project, error) {
	project := newProject()
	project.Title = t.Title
	project.Name = t.Name
	project.Version = t.Version
	project.Description = t.Description

	plans := []sectionPlan{
		{SectionRoles, CollectionRole, t.Roles, resolveNone},
		{SectionResources, CollectionForm, t.Resources, resolveForm},
		{SectionForms, CollectionForm, t.Forms, resolveForm},
		{SectionActions, CollectionAction, t.Actions, resolveAction},
	}

	for _, plan := range plans {
		slog.Info("importing section", "section", plan.section, "count", len(plan.defs))
		if err := i.importSection(ctx, project, plan); err != nil {
			return nil, err
		}
	}

	slog.Info("template imported", "project", project.Name, "entities", project.Count())
	return project, nil
}

func (i *Importer) importSection(ctx context.Context, project *Project, plan sectionPlan) error {
	created := project.Section(plan.section)

	for _, name := range slices.Sorted(maps.Keys(plan.defs)) {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := copyDefinition(plan.defs[name])
		if err != nil {
			return fmt.Errorf("%s %q: %w", plan.section, name, err)
		}
		applyDefaults(plan.section, name, doc)

		r := &resolver{project: project, section: plan.section, entity: name}
		if err := plan.resolve(r, doc); err != nil {
			return err
		}

		id, err := i.creator.Create(ctx, plan.collection, doc)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %w", ErrCreateFailed, plan.section, name, err)
		}

		doc[IDField] = id
		created[name] = Entity{ID: id, Definition: doc}
		slog.Debug("entity created", "section", plan.section, "name", name, "id", id)
	}
	return nil
}

func copyDefinition(def api.Definition) (map[string]any, error) {
	if def == nil {
		return map[string]any{}, nil
	}
	c, err := copystructure.Copy(def)
	if err != nil {
		return nil, fmt.Errorf("copying definition: %w", err)
	}
	return c.(map[string]any), nil
}

func applyDefaults(section Section, name string, doc map[string]any) {
	if _, ok := doc["machineName"]; !ok {
		doc["machineName"] = name
	}
	if section == SectionResources || section == SectionForms {
		if _, ok := doc["name"]; !ok {
			doc["name"] = name
		}
	}
}
