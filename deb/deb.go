// Package deb reads Debian binary packages.
//
// A .deb file is an AR archive whose control.tar member carries the package
// metadata. The reader streams through the archive to extract the control
// stanza without unpacking anything to disk, which is all the build pipeline
// needs to verify and report what it just produced.
package deb

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
)

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldMaintainer   ControlField = "Maintainer"
	FieldDescription  ControlField = "Description"
)

// controlMember is the prefix of the AR member holding the control tarball
// ("control.tar", "control.tar.gz").
const controlMember = "control.tar"

// Metadata is the control stanza of a built binary package.
type Metadata struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string
	Description  string

	// Control is the raw control stanza.
	Control string
}

// ReadFile reads the control metadata of the .deb file at path.
func ReadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Read reads the control metadata of a .deb archive from r.
func Read(r io.Reader) (*Metadata, error) {
	control, err := extractControl(r)
	if err != nil {
		return nil, err
	}
	m := &Metadata{Control: control}
	parseControl(control, m)
	if m.Package == "" {
		return nil, fmt.Errorf("control stanza has no Package field")
	}
	return m, nil
}

// extractControl walks the AR members looking for control.tar(.gz) and
// returns the content of the 'control' file inside it.
func extractControl(r io.Reader) (string, error) {
	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			return "", fmt.Errorf("no %s member found", controlMember)
		}
		if err != nil {
			return "", err
		}
		// AR member names may carry a trailing slash.
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if !strings.HasPrefix(name, controlMember) {
			continue
		}

		var tarSrc io.Reader = io.LimitReader(arR, header.Size)
		if strings.HasSuffix(name, ".gz") {
			gzr, err := gzip.NewReader(tarSrc)
			if err != nil {
				return "", err
			}
			defer gzr.Close()
			tarSrc = gzr
		}
		return controlFromTar(tar.NewReader(tarSrc))
	}
}

func controlFromTar(tr *tar.Reader) (string, error) {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return "", fmt.Errorf("control file not found in %s", controlMember)
		}
		if err != nil {
			return "", err
		}
		if filepath.Base(th.Name) != "control" {
			continue
		}
		var b strings.Builder
		if _, err := io.Copy(&b, tr); err != nil {
			return "", err
		}
		return b.String(), nil
	}
}

// parseControl fills m from the raw control stanza. Continuation lines
// (folded fields) belong to the preceding field.
func parseControl(control string, m *Metadata) {
	var key string
	var value strings.Builder

	flush := func() {
		val := strings.TrimSpace(value.String())
		switch ControlField(key) {
		case FieldPackage:
			m.Package = val
		case FieldVersion:
			m.Version = val
		case FieldArchitecture:
			m.Architecture = val
		case FieldMaintainer:
			m.Maintainer = val
		case FieldDescription:
			m.Description = val
		}
	}

	for _, line := range strings.Split(control, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			value.WriteString("\n" + line)
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			flush()
			key = k
			value.Reset()
			value.WriteString(strings.TrimSpace(v))
		}
	}
	flush()
}
