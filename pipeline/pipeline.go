// Package pipeline drives the sdist-to-deb build: stage the project tree,
// build a source distribution, convert it to a Debian source package, build
// the binary package and export the artifacts. Every external step returns a
// typed result and the first failure aborts the run; nothing relies on
// implicit shell error handling.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lbarthe/sdist2deb/deb"
	"github.com/lbarthe/sdist2deb/distro"
	"github.com/lbarthe/sdist2deb/run"
	"github.com/lbarthe/sdist2deb/stage"
)

// debDistDir is where the sdist-to-dsc converter writes its package trees.
const debDistDir = "deb_dist"

// Pipeline holds everything one build needs. All configuration is explicit;
// the pipeline reads nothing from the process environment.
type Pipeline struct {
	// ProjectDir is the source project to package.
	ProjectDir string
	// DestDir receives the built artifacts; it must already exist.
	DestDir string
	// Project is the distribution name used for archive and artifact naming.
	Project string
	// StagingDir is the isolated build root.
	StagingDir string
	// Helper is the setup helper script name inside the project tree.
	Helper string
	// Converter is the sdist-to-dsc converter command.
	Converter string
	// Toolchain selects the interpreter and converter flags for this host.
	Toolchain distro.Toolchain
	// Clean removes the staging dir after a successful run. Off by
	// default: the leftover workspace is handy for debugging failed tool
	// output and re-runs overwrite it anyway.
	Clean bool
	// Echo prints each tool invocation before it runs.
	Echo bool
	// Out receives progress lines; nil silences them.
	Out io.Writer
}

// Artifact is one exported binary package.
type Artifact struct {
	// Path is the artifact's location inside DestDir.
	Path string
	// Meta is the package's control metadata.
	Meta *deb.Metadata
}

// Run executes the whole build and returns the exported binary packages.
func (p *Pipeline) Run(ctx context.Context) ([]Artifact, error) {
	destDir, err := p.checkDest()
	if err != nil {
		return nil, err
	}
	projectDir, err := filepath.Abs(p.ProjectDir)
	if err != nil {
		return nil, err
	}

	ws := stage.New(p.StagingDir)
	p.logf("Staging %s into %s...", projectDir, ws.Root)
	if err := ws.Populate(ctx, projectDir); err != nil {
		return nil, err
	}

	helper, err := ws.RewriteHelper(p.Helper)
	if err != nil {
		return nil, err
	}
	runner := &run.Runner{Dir: ws.Root, Echo: p.Echo}
	if _, err := runner.Run(helper); err != nil {
		return nil, fmt.Errorf("setup helper: %w", err)
	}

	version, err := p.queryVersion(runner)
	if err != nil {
		return nil, err
	}
	p.logf("Building %s %s with %s...", p.Project, version, p.Toolchain.Interpreter)

	// The version and a non-interactive frontend are the only environment
	// the downstream tools receive beyond the inherited one.
	runner.Env = map[string]string{
		versionVar(p.Project): version,
		"DEBIAN_FRONTEND":     "noninteractive",
	}

	archive, err := p.buildSdist(runner, version)
	if err != nil {
		return nil, err
	}

	if err := p.convert(runner, archive); err != nil {
		return nil, err
	}

	pkgDir, err := p.packageDir(ws)
	if err != nil {
		return nil, err
	}
	p.logf("Building binary package in %s...", pkgDir)
	buildRunner := &run.Runner{Dir: pkgDir, Env: runner.Env, Echo: p.Echo}
	if _, err := buildRunner.Run("dpkg-buildpackage", "-rfakeroot", "-uc", "-us", "-i"); err != nil {
		return nil, fmt.Errorf("binary package build: %w", err)
	}

	if err := stage.RemoveSubdirs(ws.Path(debDistDir)); err != nil {
		return nil, err
	}
	if err := stage.PurgeArtifacts(destDir, p.Project); err != nil {
		return nil, err
	}
	exported, err := ws.Export(ctx, ws.Path(debDistDir), destDir)
	if err != nil {
		return nil, err
	}

	artifacts, err := p.verify(exported)
	if err != nil {
		return nil, err
	}

	if p.Clean {
		if err := ws.Remove(); err != nil {
			return nil, fmt.Errorf("clean staging dir: %w", err)
		}
	}
	return artifacts, nil
}

func (p *Pipeline) checkDest() (string, error) {
	destDir, err := filepath.Abs(p.DestDir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(destDir)
	if err != nil {
		return "", fmt.Errorf("destination: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("destination %s is not a directory", destDir)
	}
	return destDir, nil
}

// queryVersion asks the project's build metadata for its version string.
func (p *Pipeline) queryVersion(runner *run.Runner) (string, error) {
	res, err := runner.Capture(p.Toolchain.Interpreter, "setup.py", "--version")
	if err != nil {
		return "", fmt.Errorf("query version: %w", err)
	}
	if res.Stdout == "" {
		return "", fmt.Errorf("query version: %s reported an empty version", res.Command)
	}
	return res.Stdout, nil
}

// buildSdist produces the source distribution archive and returns its path
// relative to the staging root.
func (p *Pipeline) buildSdist(runner *run.Runner, version string) (string, error) {
	if _, err := runner.Run(p.Toolchain.Interpreter, "setup.py", "sdist"); err != nil {
		return "", fmt.Errorf("sdist: %w", err)
	}
	archive := filepath.Join("dist", fmt.Sprintf("%s-%s.tar.gz", p.Project, version))
	if _, err := os.Stat(filepath.Join(runner.Dir, archive)); err != nil {
		return "", fmt.Errorf("sdist did not produce %s: %w", archive, err)
	}
	return archive, nil
}

func (p *Pipeline) convert(runner *run.Runner, archive string) error {
	args := append(append([]string{}, p.Toolchain.ConverterFlags...), archive)
	if _, err := runner.Run(p.Converter, args...); err != nil {
		return fmt.Errorf("convert to source package: %w", err)
	}
	return nil
}

// packageDir locates the generated source package tree under deb_dist,
// skipping any entry named after the pristine upstream archive.
func (p *Pipeline) packageDir(ws *stage.Workspace) (string, error) {
	dir := ws.Path(debDistDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", debDistDir, err)
	}
	var candidates []string
	for _, e := range entries {
		if !e.IsDir() || strings.Contains(e.Name(), ".orig") {
			continue
		}
		candidates = append(candidates, e.Name())
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no source package directory under %s", debDistDir)
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		return "", fmt.Errorf("ambiguous source package directories under %s: %v", debDistDir, candidates)
	}
}

// verify reads back every exported .deb and reports it. A build that
// exported none is a failure.
func (p *Pipeline) verify(exported []string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, path := range exported {
		if !strings.HasSuffix(path, ".deb") {
			continue
		}
		meta, err := deb.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("verify artifact: %w", err)
		}
		p.logf("Built %s %s (%s)", meta.Package, meta.Version, meta.Architecture)
		artifacts = append(artifacts, Artifact{Path: path, Meta: meta})
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("build exported no binary packages to %s", p.DestDir)
	}
	return artifacts, nil
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Out == nil {
		return
	}
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// versionVar derives the environment variable name carrying the project
// version, e.g. PKGVERSION-style "SAMPLEVERSION" for project "sample".
func versionVar(project string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(project) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String() + "VERSION"
}
