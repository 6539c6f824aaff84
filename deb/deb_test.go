package deb

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/blakesmith/ar"
)

func TestReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := Create(&buf, Metadata{Package: "sample", Version: "1.0-1", Architecture: "all"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if m.Package != "sample" {
		t.Errorf("expected package sample, got %s", m.Package)
	}
	if m.Version != "1.0-1" {
		t.Errorf("expected version 1.0-1, got %s", m.Version)
	}
	if m.Architecture != "all" {
		t.Errorf("expected architecture all, got %s", m.Architecture)
	}
}

func TestReadUncompressedControlTar(t *testing.T) {
	control := "Package: sample\nVersion: 2.0\nArchitecture: amd64\n"

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	tw.WriteHeader(&tar.Header{Name: "./control", Mode: 0644, Size: int64(len(control))})
	tw.Write([]byte(control))
	tw.Close()

	var buf bytes.Buffer
	arW := ar.NewWriter(&buf)
	arW.WriteGlobalHeader()
	addMember(arW, "debian-binary", []byte("2.0\n"))
	addMember(arW, "control.tar", tarBuf.Bytes())

	m, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if m.Package != "sample" || m.Version != "2.0" || m.Architecture != "amd64" {
		t.Errorf("unexpected metadata: %+v", m)
	}
}

func TestReadFoldedFields(t *testing.T) {
	control := "Package: sample\nVersion: 1.0\nArchitecture: all\n" +
		"Maintainer: Someone <someone@example.com>\n" +
		"Description: short synopsis\n extended body line\n"

	var buf bytes.Buffer
	if err := Create(&buf, Metadata{Control: control, Package: "sample"}); err != nil {
		t.Fatal(err)
	}

	m, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if m.Maintainer != "Someone <someone@example.com>" {
		t.Errorf("unexpected maintainer %q", m.Maintainer)
	}
	if m.Description != "short synopsis\n extended body line" {
		t.Errorf("unexpected description %q", m.Description)
	}
}

func TestReadMissingControl(t *testing.T) {
	var buf bytes.Buffer
	arW := ar.NewWriter(&buf)
	arW.WriteGlobalHeader()
	addMember(arW, "debian-binary", []byte("2.0\n"))

	if _, err := Read(&buf); err == nil {
		t.Fatal("expected error for archive without control member")
	}
}

func TestReadGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not an archive"))); err == nil {
		t.Fatal("expected error for non-AR input")
	}
}
