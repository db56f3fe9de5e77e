package resolver

import (
	"errors"
	"testing"
)

func TestResolveLatest(t *testing.T) {
	got, err := Resolve(Latest, []string{"1.0.0", "1.2.3", "1.2.0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.2.3" {
		t.Errorf("Resolve(latest) = %q, want 1.2.3", got)
	}
}

func TestResolveLatestExcludesPrereleaseUnlessOnlyOption(t *testing.T) {
	got, err := Resolve(Latest, []string{"1.0.0", "1.1.0-rc1"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.0.0" {
		t.Errorf("Resolve(latest) = %q, want 1.0.0 (prerelease excluded)", got)
	}

	got, err = Resolve(Latest, []string{"1.1.0-rc1", "1.1.0-rc2"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.1.0-rc2" {
		t.Errorf("Resolve(latest) = %q, want 1.1.0-rc2 (only prereleases available)", got)
	}
}

func TestResolveExactVersion(t *testing.T) {
	got, err := Resolve("1.2.0", []string{"1.0.0", "1.2.0", "1.2.3"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.2.0" {
		t.Errorf("Resolve(1.2.0) = %q, want 1.2.0", got)
	}
}

func TestResolveExactVersionMissing(t *testing.T) {
	_, err := Resolve("9.9.9", []string{"1.0.0"})
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestResolveRange(t *testing.T) {
	got, err := Resolve(">=1.0.0 <2.0.0", []string{"1.0.0", "1.5.0", "2.0.0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.5.0" {
		t.Errorf("Resolve(range) = %q, want 1.5.0", got)
	}
}

func TestResolveRangeExcludesPrereleaseOnDifferentTriple(t *testing.T) {
	_, err := Resolve(">=1.0.0 <2.0.0", []string{"1.2.0-rc1"})
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch (a range must not match a prerelease on a different major.minor.patch)", err)
	}
}

func TestResolveInvalidRequirement(t *testing.T) {
	_, err := Resolve("not-a-version-or-range", []string{"1.0.0"})
	if err == nil {
		t.Fatal("expected error for invalid requirement")
	}
}

func TestResolveNoCandidates(t *testing.T) {
	_, err := Resolve(Latest, nil)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestNextAutoOnEmptyCandidates(t *testing.T) {
	got, err := NextAuto(nil)
	if err != nil {
		t.Fatalf("NextAuto: %v", err)
	}
	if got != "0.0.1" {
		t.Errorf("NextAuto(nil) = %q, want 0.0.1", got)
	}
}

func TestNextAutoBumpsPatchOfHighest(t *testing.T) {
	got, err := NextAuto([]string{"1.2.3", "1.2.4"})
	if err != nil {
		t.Fatalf("NextAuto: %v", err)
	}
	if got != "1.2.5" {
		t.Errorf("NextAuto = %q, want 1.2.5", got)
	}
}

func TestNextAutoStripsPrerelease(t *testing.T) {
	got, err := NextAuto([]string{"1.2.3-rc1"})
	if err != nil {
		t.Fatalf("NextAuto: %v", err)
	}
	if got != "1.2.4" {
		t.Errorf("NextAuto = %q, want 1.2.4 (prerelease stripped before bump)", got)
	}
}
