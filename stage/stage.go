// Package stage manages the temporary build workspace and the file shuffling
// around it: populating the staging copy of the project tree, rewriting the
// setup helper, and moving build artifacts in and out of the destination
// directory.
package stage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// Markers rewritten in the setup helper: the packaging build must reference
// the pinned "current" template rather than track "latest".
const (
	helperMarker      = "latest"
	helperReplacement = "current"
	// HelperSuffix is appended to the rewritten helper's filename.
	HelperSuffix = ".deb"
)

// Workspace is a staging directory holding an isolated copy of the project
// tree. Builds mutate the copy only; the original tree is never touched.
type Workspace struct {
	Root string

	fs afs.Service
}

// New returns a workspace rooted at root. The directory is created lazily by
// Populate.
func New(root string) *Workspace {
	return &Workspace{Root: root, fs: afs.New()}
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// Populate copies every top-level entry of srcDir into the workspace,
// hidden entries (version-control metadata) included. Re-populating an
// existing workspace overwrites prior contents in place.
func (w *Workspace) Populate(ctx context.Context, srcDir string) error {
	if err := os.MkdirAll(w.Root, 0755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("read project dir: %w", err)
	}
	for _, e := range entries {
		src := filepath.Join(srcDir, e.Name())
		if src == w.Root {
			continue
		}
		if err := w.fs.Copy(ctx, src, w.Path(e.Name())); err != nil {
			return fmt.Errorf("stage %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RewriteHelper reads the named helper script in the workspace, replaces the
// "latest" template marker with "current", and writes the result next to it
// as an executable "<name>.deb" copy. The rewrite always starts from the
// pristine helper, so repeated runs produce identical output. A missing
// helper is an error.
func (w *Workspace) RewriteHelper(name string) (string, error) {
	src := w.Path(name)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("helper script: %w", err)
	}
	rewritten := bytes.ReplaceAll(data, []byte(helperMarker), []byte(helperReplacement))

	dst := src + HelperSuffix
	if err := os.WriteFile(dst, rewritten, 0755); err != nil {
		return "", fmt.Errorf("write rewritten helper: %w", err)
	}
	// WriteFile keeps the old mode when the file already exists.
	if err := os.Chmod(dst, 0755); err != nil {
		return "", err
	}
	return dst, nil
}

// Export copies every regular file directly under srcDir into destDir and
// returns the destination paths. Subdirectories are skipped. An empty srcDir
// exports nothing.
func (w *Workspace) Export(ctx context.Context, srcDir, destDir string) ([]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}
	var exported []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dst := filepath.Join(destDir, e.Name())
		if err := w.fs.Copy(ctx, filepath.Join(srcDir, e.Name()), dst); err != nil {
			return nil, fmt.Errorf("export %s: %w", e.Name(), err)
		}
		exported = append(exported, dst)
	}
	return exported, nil
}

// Remove deletes the whole workspace.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Root)
}

// RemoveSubdirs deletes every directory directly under dir, leaving files in
// place. A dir without subdirectories is a no-op.
func RemoveSubdirs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// PurgeArtifacts removes every regular file under dir whose name starts with
// prefix, so stale artifacts from earlier runs never linger next to new
// ones. No match is a no-op.
func PurgeArtifacts(dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
