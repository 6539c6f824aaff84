// Package distro selects the build toolchain from the host OS identity.
//
// Debian-based hosts report their release in a plain-text file
// (/etc/os-release). Legacy releases ship only the legacy Python stack, so
// both the interpreter used to drive setup.py and the flags passed to the
// sdist-to-dsc converter depend on which release the build runs on.
package distro

import (
	"os"
	"strings"
)

// Toolchain is the interpreter and converter flag selection for one host.
type Toolchain struct {
	// Interpreter is the binary name used to run setup.py.
	Interpreter string
	// ConverterFlags are passed to the sdist-to-dsc converter before the
	// archive argument.
	ConverterFlags []string
}

// Defaults mirroring the classic Debian split.
var (
	Legacy = Toolchain{Interpreter: "python"}
	Modern = Toolchain{
		Interpreter:    "python3",
		ConverterFlags: []string{"--with-python3=True", "--with-python2=False"},
	}
)

// Select picks legacy when any line of the release file contains marker,
// modern otherwise. An absent or unreadable release file selects modern: the
// marker simply cannot be found, which is not an error on non-legacy hosts.
// The second return reports whether the legacy branch was taken.
func Select(releaseFile, marker string, legacy, modern Toolchain) (Toolchain, bool) {
	if hasMarker(releaseFile, marker) {
		return legacy, true
	}
	return modern, false
}

func hasMarker(path, marker string) bool {
	if marker == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
