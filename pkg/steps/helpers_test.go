package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/importer"
)

// writeTestFile writes content to a file in dir, failing the test on error.
func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// memPlatform keeps entities, submissions and the saved project in memory.
type memPlatform struct {
	entities    map[string]map[string]any
	submissions []memSubmission
	saved       *importer.Project
}

type memSubmission struct {
	formID string
	data   map[string]any
	roles  []string
}

func newMemPlatform() *memPlatform {
	return &memPlatform{entities: make(map[string]map[string]any)}
}

func (p *memPlatform) Create(_ context.Context, collection string, doc map[string]any) (string, error) {
	id := fmt.Sprintf("%s-%d", collection, len(p.entities)+1)
	p.entities[id] = doc
	return id, nil
}

func (p *memPlatform) EncryptPassword(_ context.Context, plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (p *memPlatform) CreateSubmission(_ context.Context, formID string, data map[string]any, roles []string) (string, error) {
	p.submissions = append(p.submissions, memSubmission{formID: formID, data: data, roles: roles})
	return fmt.Sprintf("submission-%d", len(p.submissions)), nil
}

func (p *memPlatform) SaveProject(_ context.Context, project *importer.Project) error {
	p.saved = project
	return nil
}

func (p *memPlatform) LoadProject(context.Context) (*importer.Project, bool, error) {
	return p.saved, p.saved != nil, nil
}

func (p *memPlatform) SubmissionExists(_ context.Context, formID, field, value string) (bool, error) {
	for _, s := range p.submissions {
		if s.formID == formID && s.data[field] == value {
			return true, nil
		}
	}
	return false, nil
}

// testState returns a resolved configuration rooted in a fresh directory.
func testState(t *testing.T) *State {
	t.Helper()
	cfg := api.DefaultConfig()
	cfg.Root = api.RootAccount{Email: "admin@example.com", Password: "secret"}
	if err := cfg.Resolve(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	return &State{
		Config:       cfg,
		Platform:     newMemPlatform(),
		Placeholders: cfg.Placeholders(),
	}
}
