// Package resolver picks a concrete version out of a VersionsIndex to
// satisfy a version requirement string: "latest", an exact semver, or a
// blang/semver range expression.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// ErrNoMatch is returned when no version in the candidate set satisfies req.
var ErrNoMatch = errors.New("resolver: no version satisfies requirement")

// Latest is the sentinel requirement string selecting the highest version.
const Latest = "latest"

// Auto is the publish-only sentinel requirement string selecting the next
// patch version.
const Auto = "auto"

// NextAuto returns the version Auto resolves to against candidates: an
// empty candidate set resolves to "0.0.1"; otherwise it is the highest
// candidate's major.minor.patch+1, with any prerelease/build metadata
// stripped.
func NextAuto(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "0.0.1", nil
	}

	var max semver.Version
	found := false
	for _, c := range candidates {
		v, err := semver.Parse(c)
		if err != nil {
			return "", fmt.Errorf("resolver: candidate %q is not a valid version: %w", c, err)
		}
		if !found || v.GT(max) {
			max, found = v, true
		}
	}

	next := semver.Version{Major: max.Major, Minor: max.Minor, Patch: max.Patch + 1}
	return next.String(), nil
}

// Resolve returns the version in candidates that best satisfies req.
//
//   - req == "latest": the highest semver-ordered version, prereleases
//     excluded unless every candidate is a prerelease.
//   - req is an exact version ("1.2.3"): that version, if present.
//   - otherwise: req is parsed as a blang/semver range, and the highest
//     version satisfying the range is returned. A version's prerelease
//     component only matches a range when the range itself names a
//     prerelease on the same major.minor.patch triple. blang/semver's
//     range check compares prereleases like any other version, so Resolve
//     applies this rule itself: a bare "1.x" does not match "1.2.0-rc1".
func Resolve(req string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidate versions", ErrNoMatch)
	}

	parsed := make([]semver.Version, 0, len(candidates))
	byString := make(map[string]semver.Version, len(candidates))
	for _, c := range candidates {
		v, err := semver.Parse(c)
		if err != nil {
			return "", fmt.Errorf("resolver: candidate %q is not a valid version: %w", c, err)
		}
		parsed = append(parsed, v)
		byString[c] = v
	}

	if req == Latest {
		return latest(candidates, parsed, false)
	}

	if exact, err := semver.Parse(req); err == nil {
		for _, c := range candidates {
			if byString[c].EQ(exact) {
				return c, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrNoMatch, req)
	}

	rng, err := semver.ParseRange(req)
	if err != nil {
		return "", fmt.Errorf("resolver: invalid requirement %q: %w", req, err)
	}

	var best string
	var bestVersion semver.Version
	found := false
	for _, c := range candidates {
		v := byString[c]
		if !rng(v) {
			continue
		}
		if len(v.Pre) > 0 {
			named := false
			for _, field := range strings.Fields(req) {
				rv, err := semver.Parse(strings.TrimLeft(field, "<>=!"))
				if err == nil && len(rv.Pre) > 0 && rv.Major == v.Major && rv.Minor == v.Minor && rv.Patch == v.Patch {
					named = true
				}
			}
			if !named {
				continue
			}
		}
		if !found || v.GT(bestVersion) {
			best, bestVersion, found = c, v, true
		}
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, req)
	}
	return best, nil
}

func latest(candidates []string, parsed []semver.Version, includePrerelease bool) (string, error) {
	var best string
	var bestVersion semver.Version
	found := false
	for i, v := range parsed {
		if !includePrerelease && len(v.Pre) > 0 {
			continue
		}
		if !found || v.GT(bestVersion) {
			best, bestVersion, found = candidates[i], v, true
		}
	}
	if found {
		return best, nil
	}
	// every candidate is a prerelease: fall back to the highest of those.
	if !includePrerelease {
		return latest(candidates, parsed, true)
	}
	return "", fmt.Errorf("%w: latest", ErrNoMatch)
}
