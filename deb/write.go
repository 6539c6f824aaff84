package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"github.com/blakesmith/ar"
)

// Create writes a minimal structurally valid .deb archive to w: the
// debian-binary marker, a control.tar.gz holding the control stanza derived
// from m, and an empty payload. Enough for fixtures and smoke checks; real
// packages come out of dpkg-buildpackage.
func Create(w io.Writer, m Metadata) error {
	arW := ar.NewWriter(w)
	if err := arW.WriteGlobalHeader(); err != nil {
		return err
	}

	if err := addMember(arW, "debian-binary", []byte("2.0\n")); err != nil {
		return err
	}

	controlTar, err := controlTarball(m)
	if err != nil {
		return err
	}
	if err := addMember(arW, "control.tar.gz", controlTar); err != nil {
		return err
	}

	return addMember(arW, "data.tar.gz", emptyTarball())
}

// addMember writes a named byte slice as an AR member with mode 0644 and the
// current timestamp.
func addMember(w *ar.Writer, name string, body []byte) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func controlTarball(m Metadata) ([]byte, error) {
	control := m.Control
	if control == "" {
		control = fmt.Sprintf("Package: %s\nVersion: %s\nArchitecture: %s\n",
			m.Package, m.Version, m.Architecture)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	hdr := &tar.Header{
		Name: "control",
		Mode: 0644,
		Size: int64(len(control)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write([]byte(control)); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emptyTarball() []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	tw.Close()
	gw.Close()
	return buf.Bytes()
}
