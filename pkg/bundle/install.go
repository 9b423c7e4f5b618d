package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/formio-install/pkg/api"
)

const (
	configTemplatePattern = "config.template*"
	templateMarker        = ".template"
)

var (
	ErrMoveFailed            = errors.New("moving extracted bundle failed")
	ErrMissingManifest       = errors.New("missing bundle manifest")
	ErrMissingConfigTemplate = errors.New("missing config template")
)

// manifest is the subset of package.json the installer reads.
type manifest struct {
	Formio struct {
		DocRoot string `json:"docRoot"`
	} `json:"formio"`
}

// Installer extracts fetched bundles and writes their active configuration.
type Installer struct {
	Unpacker Unpacker
}

// NewInstaller returns an Installer for zip bundles.
func NewInstaller() *Installer {
	return &Installer{Unpacker: ZipUnpacker{}}
}

// Installed reports whether the bundle target directory already exists.
func Installed(b api.BundleSpec) bool {
	_, err := os.Stat(b.TargetDir)
	return err == nil
}

// Install unpacks the archive, renders the extracted tree's config template
// with vars and moves the tree to the target directory.
func (i *Installer) Install(ctx context.Context, b api.BundleSpec, vars map[string]string) error {
	if Installed(b) {
		slog.Info("target already exists, skipping extraction", "bundle", b.Name, "dir", b.TargetDir)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("extracting bundle", "bundle", b.Name, "archive", b.ArchivePath)

	parent := filepath.Dir(b.TargetDir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("creating parent of %s: %w", b.TargetDir, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(b.TargetDir)+"-extract-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer removeStaging(staging)

	if err := i.Unpacker.Unpack(b.ArchivePath, staging); err != nil {
		return fmt.Errorf("unpacking %s: %w", b.Name, err)
	}

	src, err := findExtracted(staging, b.ExtractedDir)
	if err != nil {
		removeArchive(b)
		return fmt.Errorf("installing %s: %w", b.Name, err)
	}

	// The target directory only ever holds a configured bundle.
	if err := Configure(src, vars); err != nil {
		removeArchive(b)
		return fmt.Errorf("configuring %s: %w", b.Name, err)
	}

	if err := os.Rename(src, b.TargetDir); err != nil {
		removeArchive(b)
		return fmt.Errorf("installing %s: %w: %w", b.Name, ErrMoveFailed, err)
	}
	removeArchive(b)

	slog.Info("bundle installed", "bundle", b.Name, "dir", b.TargetDir)
	return nil
}

func findExtracted(staging, pattern string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(staging), pattern)
	if err != nil {
		return "", fmt.Errorf("%w: glob %q: %w", ErrMoveFailed, pattern, err)
	}
	for _, m := range matches {
		p := filepath.Join(staging, filepath.FromSlash(m))
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no directory matching %q in archive", ErrMoveFailed, pattern)
}

func removeArchive(b api.BundleSpec) {
	if err := os.Remove(b.ArchivePath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove archive", "bundle", b.Name, "path", b.ArchivePath, "error", err)
	}
}

func removeStaging(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove staging directory", "path", dir, "error", err)
	}
}

// DocumentRoot returns the directory holding the bundle's served files,
// honouring formio.docRoot from the bundle's package.json.
func DocumentRoot(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, api.ManifestFilename))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingManifest, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("%w: parsing %s: %w", ErrMissingManifest, api.ManifestFilename, err)
	}

	docRoot := m.Formio.DocRoot
	if docRoot == "" {
		return dir, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(docRoot)) {
		return "", fmt.Errorf("docRoot %q escapes bundle directory", docRoot)
	}
	return filepath.Join(dir, filepath.FromSlash(docRoot)), nil
}

// Configure renders every config template in the bundle document root.
func Configure(dir string, vars map[string]string) error {
	root, err := DocumentRoot(dir)
	if err != nil {
		return err
	}

	templates, err := configTemplates(root)
	if err != nil {
		return err
	}

	for _, name := range templates {
		if err := renderConfig(root, name, vars); err != nil {
			return fmt.Errorf("rendering %s: %w", name, err)
		}
	}
	return nil
}

func configTemplates(root string) ([]string, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, configTemplatePattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", configTemplatePattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if !info.IsDir() {
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s in %s", ErrMissingConfigTemplate, configTemplatePattern, root)
	}
	return files, nil
}

func renderConfig(root, name string, vars map[string]string) error {
	content, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	rendered, unknown := Render(string(content), vars)
	if len(unknown) > 0 {
		slog.Warn("config template has placeholders without values", "file", name, "placeholders", unknown)
	}

	outName := strings.Replace(name, templateMarker, "", 1)
	if err := os.WriteFile(filepath.Join(root, outName), []byte(rendered), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", outName, err)
	}

	slog.Debug("config rendered", "template", name, "output", outName)
	return nil
}
