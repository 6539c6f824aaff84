package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/lbarthe/sdist2deb/deb"
	"github.com/lbarthe/sdist2deb/distro"
	"github.com/lbarthe/sdist2deb/pipeline"
)

// Config is a business object holding the build configuration. Every field
// has a default mirroring the classic builddeb behavior, so running without
// a config file works for the common case.
type Config struct {
	// Project is the distribution name; defaults to the project dir's base name.
	Project string
	// StagingRoot is the isolated build root; defaults to /tmp/<project>.
	StagingRoot string
	// Helper is the setup helper script name inside the project tree.
	Helper string
	// ReleaseFile identifies the host OS release.
	ReleaseFile string
	// LegacyMarker flags a legacy host when found in ReleaseFile.
	LegacyMarker string
	// Legacy and Modern are the two selectable toolchains.
	Legacy distro.Toolchain
	Modern distro.Toolchain
	// Converter is the sdist-to-dsc converter command.
	Converter string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sdist2deb <command> [flags]")
		fmt.Println("Commands: build, inspect")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		buildPackage(os.Args[2:])
	case "inspect":
		inspectDebs(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func buildPackage(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	confPath := fs.String("config", "sdist2deb.yaml", "Path to config file")
	projectDir := fs.String("project", ".", "Project directory to package")
	clean := fs.Bool("clean", false, "Remove the staging directory after a successful build")
	quiet := fs.Bool("q", false, "Suppress progress output")
	echo := fs.Bool("x", false, "Print each tool invocation")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("Usage: sdist2deb build [flags] DESTDIR")
		os.Exit(1)
	}
	destDir := fs.Arg(0)

	config, err := decodeConfig(*confPath, *projectDir)
	if err != nil {
		fmt.Printf("Fatal: Could not read or parse config file %s: %v\n", *confPath, err)
		os.Exit(1)
	}

	toolchain, legacy := distro.Select(config.ReleaseFile, config.LegacyMarker, config.Legacy, config.Modern)
	if !*quiet && legacy {
		fmt.Printf("Legacy host detected (%s), using %s\n", config.LegacyMarker, toolchain.Interpreter)
	}

	p := &pipeline.Pipeline{
		ProjectDir: *projectDir,
		DestDir:    destDir,
		Project:    config.Project,
		StagingDir: config.StagingRoot,
		Helper:     config.Helper,
		Converter:  config.Converter,
		Toolchain:  toolchain,
		Clean:      *clean,
		Echo:       *echo,
	}
	if !*quiet {
		p.Out = os.Stdout
	}

	artifacts, err := p.Run(context.Background())
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		for _, a := range artifacts {
			fmt.Printf("Wrote %s\n", a.Path)
		}
	}
}

func inspectDebs(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Println("Usage: sdist2deb inspect FILE.deb...")
		os.Exit(1)
	}
	if err := inspect(os.Stdout, fs.Args()); err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
}

// inspect prints one control summary line per package file.
func inspect(w io.Writer, paths []string) error {
	for _, path := range paths {
		meta, err := deb.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s %s (%s)\n", filepath.Base(path), meta.Package, meta.Version, meta.Architecture)
	}
	return nil
}

// decodeConfig reads the YAML configuration and fills in defaults. A missing
// config file is not an error; defaults apply.
func decodeConfig(path, projectDir string) (*Config, error) {
	// Internal DTOs for YAML deserialization
	type yamlToolchain struct {
		Interpreter    string   `yaml:"interpreter"`
		ConverterFlags []string `yaml:"converter_flags"`
	}
	type yamlConfig struct {
		Project      string        `yaml:"project"`
		StagingRoot  string        `yaml:"staging_root"`
		Helper       string        `yaml:"helper"`
		ReleaseFile  string        `yaml:"release_file"`
		LegacyMarker string        `yaml:"legacy_marker"`
		Legacy       yamlToolchain `yaml:"legacy"`
		Modern       yamlToolchain `yaml:"modern"`
		Converter    string        `yaml:"converter"`
	}

	var dto yamlConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	// Map DTO to business object
	config := &Config{
		Project:      dto.Project,
		StagingRoot:  dto.StagingRoot,
		Helper:       dto.Helper,
		ReleaseFile:  dto.ReleaseFile,
		LegacyMarker: dto.LegacyMarker,
		Legacy:       distro.Toolchain{Interpreter: dto.Legacy.Interpreter, ConverterFlags: dto.Legacy.ConverterFlags},
		Modern:       distro.Toolchain{Interpreter: dto.Modern.Interpreter, ConverterFlags: dto.Modern.ConverterFlags},
		Converter:    dto.Converter,
	}

	if config.Project == "" {
		abs, err := filepath.Abs(projectDir)
		if err != nil {
			return nil, err
		}
		config.Project = filepath.Base(abs)
	}
	if config.StagingRoot == "" {
		config.StagingRoot = filepath.Join(os.TempDir(), config.Project)
	}
	if config.Helper == "" {
		config.Helper = "makesetup"
	}
	if config.ReleaseFile == "" {
		config.ReleaseFile = "/etc/os-release"
	}
	if config.LegacyMarker == "" {
		config.LegacyMarker = "wheezy"
	}
	if config.Legacy.Interpreter == "" {
		config.Legacy = distro.Legacy
	}
	if config.Modern.Interpreter == "" {
		config.Modern = distro.Modern
	}
	if config.Converter == "" {
		config.Converter = "py2dsc"
	}
	return config, nil
}
