package distro

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSelectLegacy(t *testing.T) {
	path := writeRelease(t, "PRETTY_NAME=\"Debian GNU/Linux 7 (wheezy)\"\nVERSION_CODENAME=wheezy\n")

	tc, legacy := Select(path, "wheezy", Legacy, Modern)
	if !legacy {
		t.Fatal("expected legacy branch")
	}
	if tc.Interpreter != "python" {
		t.Errorf("expected interpreter python, got %s", tc.Interpreter)
	}
	if len(tc.ConverterFlags) != 0 {
		t.Errorf("expected no converter flags, got %v", tc.ConverterFlags)
	}
}

func TestSelectModern(t *testing.T) {
	path := writeRelease(t, "PRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\nVERSION_CODENAME=bookworm\n")

	tc, legacy := Select(path, "wheezy", Legacy, Modern)
	if legacy {
		t.Fatal("expected modern branch")
	}
	if tc.Interpreter != "python3" {
		t.Errorf("expected interpreter python3, got %s", tc.Interpreter)
	}
	if len(tc.ConverterFlags) != 2 {
		t.Errorf("expected 2 converter flags, got %v", tc.ConverterFlags)
	}
}

func TestSelectMissingReleaseFile(t *testing.T) {
	// grep on a missing file fails, which lands on the modern branch.
	tc, legacy := Select(filepath.Join(t.TempDir(), "nope"), "wheezy", Legacy, Modern)
	if legacy {
		t.Fatal("expected modern branch for missing release file")
	}
	if tc.Interpreter != "python3" {
		t.Errorf("expected interpreter python3, got %s", tc.Interpreter)
	}
}

func TestSelectEmptyMarker(t *testing.T) {
	path := writeRelease(t, "anything\n")
	if _, legacy := Select(path, "", Legacy, Modern); legacy {
		t.Fatal("empty marker must never match")
	}
}
