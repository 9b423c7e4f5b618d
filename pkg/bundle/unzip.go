package bundle

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Unpacker extracts an archive file into a directory.
type Unpacker interface {
	Unpack(archivePath, destDir string) error
}

// ZipUnpacker extracts zip archives such as the codeload bundles.
type ZipUnpacker struct{}

func (ZipUnpacker) Unpack(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if err := extractEntry(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("archive entry %q escapes destination", f.Name)
	}
	target := filepath.Join(destDir, name)

	mode := f.Mode()
	switch {
	case mode.IsDir():
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", target, err)
		}
		return nil
	case mode&fs.ModeSymlink != 0:
		slog.Debug("skipping symlink in archive", "entry", f.Name)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	_, copyErr := io.Copy(out, rc)
	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return fmt.Errorf("closing %s: %w", target, closeErr)
	}
	if copyErr != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, copyErr)
	}
	return nil
}
