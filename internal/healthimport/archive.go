package healthimport

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sh1zzle/activetime-project/internal"
)

const (
	archiveExt    = ".zip"
	scratchPrefix = "health-import-"
	payloadName   = "export.zip"
)

// exportDocument is where Apple Health places the record dump inside the archive.
var exportDocument = filepath.Join("apple_health_export", "export.xml")

// ValidateFilename rejects uploads before anything touches the filesystem.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrNoFile
	}
	if !strings.EqualFold(filepath.Ext(name), archiveExt) {
		return ErrNotZip
	}
	return nil
}

// workspace is a per-import scratch directory.
type workspace struct {
	dir    string
	logger internal.Logger
}

func newWorkspace(root string, logger internal.Logger) (*workspace, error) {
	dir, err := os.MkdirTemp(root, scratchPrefix)
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &workspace{dir: dir, logger: logger}, nil
}

func (w *workspace) archivePath() string { return filepath.Join(w.dir, payloadName) }

// cleanup removes the scratch directory. Failures are only logged.
func (w *workspace) cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warnf("healthimport: failed to clean up %s: %v", w.dir, err)
	}
}

func (w *workspace) writeArchive(body io.Reader) error {
	f, err := os.Create(w.archivePath())
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	return f.Close()
}

// extract unpacks the archive next to itself and returns the export document path.
func (w *workspace) extract() (string, error) {
	zr, err := zip.OpenReader(w.archivePath())
	if err != nil {
		return "", fmt.Errorf("%w: open archive: %v", ErrInvalidFormat, err)
	}
	defer zr.Close()

	root := filepath.Clean(w.dir) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(w.dir, f.Name)
		if !strings.HasPrefix(target, root) {
			return "", fmt.Errorf("%w: entry %q escapes archive root", ErrInvalidFormat, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return "", err
		}
	}

	doc := filepath.Join(w.dir, exportDocument)
	if info, err := os.Stat(doc); err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s not found in archive", ErrInvalidFormat, exportDocument)
	}
	return doc, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %q: %v", ErrInvalidFormat, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: inflate entry %q: %v", ErrInvalidFormat, f.Name, err)
	}
	return out.Close()
}
