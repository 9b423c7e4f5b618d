package processing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadContextFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "context.yaml")
	if err := os.WriteFile(f, []byte("brand: Acme\nport: 8080\n"), 0600); err != nil {
		t.Fatal(err)
	}

	ctx, err := LoadContextFile(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ctx["brand"] != "Acme" {
		t.Errorf("expected brand=Acme, got %v", ctx["brand"])
	}
	if ctx["port"] != "8080" {
		t.Errorf("expected port=8080, got %v", ctx["port"])
	}
}

func TestLoadContextFile_Empty(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "context.yaml")
	if err := os.WriteFile(f, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}

	ctx, err := LoadContextFile(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ctx == nil {
		t.Fatal("expected non-nil map")
	}
	if len(ctx) != 0 {
		t.Errorf("expected empty map, got %v", ctx)
	}
}

func TestLoadContextFile_NotFound(t *testing.T) {
	_, err := LoadContextFile("/nonexistent/context.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadContextFile_Nested(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "context.yaml")
	if err := os.WriteFile(f, []byte("brand:\n  name: Acme\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadContextFile(f); err == nil {
		t.Fatal("expected error for non-string placeholder")
	}
}

func TestMergeContext(t *testing.T) {
	global := map[string]string{"domain": "https://form.io", "brand": "Acme"}
	local := map[string]string{"domain": "https://forms.example.com"}

	merged := MergeContext(global, local)

	if merged["domain"] != "https://forms.example.com" {
		t.Errorf("local should win, got %q", merged["domain"])
	}
	if merged["brand"] != "Acme" {
		t.Errorf("global-only key lost, got %q", merged["brand"])
	}
	if global["domain"] != "https://form.io" {
		t.Error("MergeContext must not modify its inputs")
	}
}

func TestMergeContext_Nil(t *testing.T) {
	merged := MergeContext(nil, nil)
	if merged == nil || len(merged) != 0 {
		t.Errorf("expected empty map, got %v", merged)
	}
}
