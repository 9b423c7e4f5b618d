package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/systemstart/formio-install/pkg/api"
)

type createCall struct {
	collection string
	doc        map[string]any
}

// fakeCreator hands out sequential identifiers and can fail on a given call.
type fakeCreator struct {
	calls  []createCall
	failAt int // 1-based; 0 never fails
}

func (f *fakeCreator) Create(_ context.Context, collection string, doc map[string]any) (string, error) {
	f.calls = append(f.calls, createCall{collection: collection, doc: doc})
	if f.failAt == len(f.calls) {
		return "", errors.New("database unavailable")
	}
	return fmt.Sprintf("%s-%d", collection, len(f.calls)), nil
}

func (f *fakeCreator) names(key string) []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, fmt.Sprint(c.doc[key]))
	}
	return out
}

func parse(t *testing.T, doc string) *api.ProjectTemplate {
	t.Helper()
	tmpl, err := api.ParseTemplate([]byte(doc))
	if err != nil {
		t.Fatalf("parsing template: %v", err)
	}
	return tmpl
}

const adminTemplate = `
roles:
  administrator:
    title: Administrator
    admin: true
resources:
  admin:
    title: Admin
    type: resource
    access:
      - type: read_all
        roles: [administrator]
`

func TestImport_ResolvesRoleReferences(t *testing.T) {
	creator := &fakeCreator{}
	project, err := New(creator).Import(context.Background(), parse(t, adminTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	role, ok := project.Lookup(SectionRoles, "administrator")
	if !ok {
		t.Fatal("administrator role missing from project")
	}
	admin, ok := project.Lookup(SectionResources, "admin")
	if !ok {
		t.Fatal("admin resource missing from project")
	}

	access := admin.Definition["access"].([]any)[0].(map[string]any)
	roles := access["roles"].([]any)
	if len(roles) != 1 || roles[0] != role.ID {
		t.Fatalf("expected access roles [%s], got %v", role.ID, roles)
	}
	if roles[0] == "administrator" {
		t.Fatal("role name was not rewritten")
	}
	if admin.Definition[IDField] != admin.ID {
		t.Errorf("expected definition _id %q, got %v", admin.ID, admin.Definition[IDField])
	}
	if creator.calls[0].collection != CollectionRole || creator.calls[1].collection != CollectionForm {
		t.Errorf("unexpected collections: %+v", creator.calls)
	}
}

func TestImport_SectionOrder(t *testing.T) {
	// Document order is deliberately reversed.
	doc := `
actions:
  adminSave:
    name: save
    form: admin
forms:
  adminLogin:
    access:
      - type: read_all
        roles: [anonymous]
resources:
  admin:
    submissionAccess:
      - type: create_all
        roles: [administrator]
roles:
  anonymous: {}
  administrator: {}
`
	creator := &fakeCreator{}
	if _, err := New(creator).Import(context.Background(), parse(t, doc)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := creator.names("machineName")
	want := []string{"administrator", "anonymous", "admin", "adminLogin", "adminSave"}
	if !slices.Equal(got, want) {
		t.Fatalf("creation order = %v, want %v", got, want)
	}
}

func TestImport_ActionReferences(t *testing.T) {
	doc := `
roles:
  authenticated: {}
resources:
  user: {}
forms:
  userRegister:
    components:
      - type: select
        key: owner
        resource: user
      - type: columns
        columns:
          - components:
              - type: resource
                key: nested
                resource: user
actions:
  register:
    name: save
    form: userRegister
    settings:
      resource: user
  login:
    name: login
    form: user
    settings:
      resources: [user]
  role:
    name: role
    form: user
    settings:
      role: authenticated
      type: add
`
	project, err := New(&fakeCreator{}).Import(context.Background(), parse(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userID := project.Resources["user"].ID
	formID := project.Forms["userRegister"].ID
	roleID := project.Roles["authenticated"].ID

	register := project.Actions["register"].Definition
	if register["form"] != formID {
		t.Errorf("register.form = %v, want %s", register["form"], formID)
	}
	if register["settings"].(map[string]any)["resource"] != userID {
		t.Errorf("register.settings.resource not resolved: %v", register["settings"])
	}

	login := project.Actions["login"].Definition
	if login["form"] != userID {
		t.Errorf("login.form = %v, want %s", login["form"], userID)
	}
	resources := login["settings"].(map[string]any)["resources"].([]any)
	if len(resources) != 1 || resources[0] != userID {
		t.Errorf("login.settings.resources = %v, want [%s]", resources, userID)
	}

	role := project.Actions["role"].Definition["settings"].(map[string]any)
	if role["role"] != roleID {
		t.Errorf("role.settings.role = %v, want %s", role["role"], roleID)
	}
	if role["type"] != "add" {
		t.Errorf("non-reference settings must be untouched, got %v", role["type"])
	}

	components := project.Forms["userRegister"].Definition["components"].([]any)
	if components[0].(map[string]any)["resource"] != userID {
		t.Errorf("component resource not resolved: %v", components[0])
	}
	column := components[1].(map[string]any)["columns"].([]any)[0].(map[string]any)
	nested := column["components"].([]any)[0].(map[string]any)
	if nested["resource"] != userID {
		t.Errorf("nested component resource not resolved: %v", nested)
	}
}

func TestImport_UnresolvedReference(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantSection Section
		wantName    string
		wantCreated int
	}{
		{
			name: "action references undefined form",
			doc: `
roles:
  administrator: {}
forms:
  login: {}
actions:
  a-first:
    form: register
  b-second:
    form: login
`,
			wantSection: SectionActions,
			wantName:    "register",
			wantCreated: 2,
		},
		{
			name: "resource references undefined role",
			doc: `
roles:
  administrator: {}
resources:
  admin:
    access:
      - type: read_all
        roles: [administrator, editor]
`,
			wantSection: SectionResources,
			wantName:    "editor",
			wantCreated: 1,
		},
		{
			name: "form references resource defined as form",
			doc: `
forms:
  a:
    components:
      - resource: b
  b: {}
`,
			wantSection: SectionForms,
			wantName:    "b",
			wantCreated: 0,
		},
		{
			name: "resource component references another resource",
			doc: `
resources:
  admin:
    components:
      - type: select
        resource: user
  user: {}
`,
			wantSection: SectionResources,
			wantName:    "user",
			wantCreated: 0,
		},
		{
			name: "nested resource component references undefined name",
			doc: `
roles:
  administrator: {}
resources:
  a:
    components:
      - type: columns
        columns:
          - components:
              - resource: nosuch
`,
			wantSection: SectionResources,
			wantName:    "nosuch",
			wantCreated: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{}
			project, err := New(creator).Import(context.Background(), parse(t, tt.doc))
			if !errors.Is(err, ErrUnresolvedReference) {
				t.Fatalf("expected ErrUnresolvedReference, got %v", err)
			}
			if project != nil {
				t.Error("expected nil project on failure")
			}

			var ref *UnresolvedReferenceError
			if !errors.As(err, &ref) {
				t.Fatalf("expected *UnresolvedReferenceError, got %T", err)
			}
			if ref.Section != tt.wantSection || ref.Name != tt.wantName {
				t.Errorf("got section %q name %q, want %q %q", ref.Section, ref.Name, tt.wantSection, tt.wantName)
			}
			if len(creator.calls) != tt.wantCreated {
				t.Errorf("expected %d creations, got %d", tt.wantCreated, len(creator.calls))
			}
		})
	}
}

func TestImport_CreateFailureStops(t *testing.T) {
	doc := `
roles:
  a: {}
  b: {}
  c: {}
  d: {}
`
	creator := &fakeCreator{failAt: 3}
	_, err := New(creator).Import(context.Background(), parse(t, doc))
	if !errors.Is(err, ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), `roles "c"`) {
		t.Errorf("expected failing entity in error, got %v", err)
	}
	if len(creator.calls) != 3 {
		t.Errorf("expected creation to stop after 3 calls, got %d", len(creator.calls))
	}
}

func TestImport_DoesNotMutateTemplate(t *testing.T) {
	tmpl := parse(t, adminTemplate)
	if _, err := New(&fakeCreator{}).Import(context.Background(), tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	access := tmpl.Resources["admin"]["access"].([]any)[0].(map[string]any)
	if roles := access["roles"].([]any); roles[0] != "administrator" {
		t.Errorf("template was mutated: %v", roles)
	}
	if _, ok := tmpl.Resources["admin"][IDField]; ok {
		t.Error("template definition received an _id")
	}
}

func TestImport_Defaults(t *testing.T) {
	doc := `
roles:
  administrator:
    machineName: admins
resources:
  user: {}
`
	project, err := New(&fakeCreator{}).Import(context.Background(), parse(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := project.Roles["administrator"].Definition["machineName"]; got != "admins" {
		t.Errorf("explicit machineName overwritten: %v", got)
	}
	user := project.Resources["user"].Definition
	if user["name"] != "user" || user["machineName"] != "user" {
		t.Errorf("expected name defaults, got %v", user)
	}
}

func TestImport_DefaultTemplate(t *testing.T) {
	tmpl, err := api.DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}

	creator := &fakeCreator{}
	project, err := New(creator).Import(context.Background(), tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.Count() != len(creator.calls) {
		t.Errorf("project has %d entities, creator saw %d", project.Count(), len(creator.calls))
	}
	if _, ok := project.Lookup(SectionResources, "admin"); !ok {
		t.Error("default template must define the admin resource")
	}
	if _, ok := project.Lookup(SectionRoles, "administrator"); !ok {
		t.Error("default template must define the administrator role")
	}
}
