package catalog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// ManifestsDir returns the catalog's manifests subdirectory path.
func ManifestsDir(catalogDir string) string {
	return filepath.Join(catalogDir, "manifests")
}

// ResetManifests empties the catalog's manifests/ subdirectory while
// preserving the directory itself (spec.md §4.H step 2).
func ResetManifests(catalogDir string) error {
	dir := ManifestsDir(catalogDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerrors.Dependency(err, "creating %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return cerrors.Dependency(err, "reading %s", dir)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return cerrors.Dependency(err, "clearing %s", filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

// PopulateManifests copies every <compiledDir>/<alias>/ tree into
// <catalogDir>/manifests/<alias>/ (spec.md §4.H step 3).
func PopulateManifests(catalogDir, compiledDir string, aliases []string) error {
	dst := ManifestsDir(catalogDir)
	for _, alias := range aliases {
		src := filepath.Join(compiledDir, alias)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyTree(src, filepath.Join(dst, alias)); err != nil {
			return cerrors.Dependency(err, "copying compiled output for %s", alias)
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
