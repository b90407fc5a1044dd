// Package semver wraps strict semantic-version parsing with the loose
// coercion mobile clients need: native build numbers arrive as "1", "1.2",
// "v1.2.3" or full semver with prerelease/build suffixes.
package semver

import (
	"fmt"
	"strings"

	gosemver "github.com/coreos/go-semver/semver"
)

// Coerce normalizes a loose version string to strict semver form and parses
// it. "1.2" becomes "1.2.0", a leading "v" is dropped, build metadata is
// stripped and prerelease identifiers are kept.
func Coerce(raw string) (*gosemver.Version, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	// Strip build metadata
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	// Keep prerelease identifiers aside while padding the numeric part
	pre := ""
	if i := strings.IndexByte(s, '-'); i >= 0 {
		pre = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return nil, fmt.Errorf("invalid version %q", raw)
	}
	for _, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil, fmt.Errorf("invalid version %q", raw)
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	out := strings.Join(parts, ".")
	if pre != "" {
		out += "-" + pre
	}
	return gosemver.NewVersion(out)
}

// AtLeast reports whether version >= minimum. Unparseable versions compare
// as false; minimum must be a valid semver literal.
func AtLeast(version, minimum string) bool {
	v, err := Coerce(version)
	if err != nil {
		return false
	}
	m, err := gosemver.NewVersion(minimum)
	if err != nil {
		return false
	}
	return !v.LessThan(*m)
}

// LessThan reports whether a < b. Both must parse after coercion.
func LessThan(a, b string) (bool, error) {
	va, err := Coerce(a)
	if err != nil {
		return false, err
	}
	vb, err := Coerce(b)
	if err != nil {
		return false, err
	}
	return va.LessThan(*vb), nil
}
