package publicid

import (
	"errors"
	"strings"
	"testing"
)

func newTestDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := NewDeriver("test-salt")
	if err != nil {
		t.Fatalf("new deriver: %v", err)
	}
	return d
}

func TestDeriveIsDeterministic(t *testing.T) {
	d := newTestDeriver(t)
	first, err := d.Derive("hospital-sao-jose")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := d.Derive("hospital-sao-jose")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic output, got %q and %q", first, second)
	}
	if len(first) != Length {
		t.Fatalf("expected length %d, got %d", Length, len(first))
	}
}

func TestDeriveDependsOnSalt(t *testing.T) {
	a, err := NewDeriver("salt-a")
	if err != nil {
		t.Fatalf("new deriver: %v", err)
	}
	b, err := NewDeriver("salt-b")
	if err != nil {
		t.Fatalf("new deriver: %v", err)
	}
	idA, _ := a.Derive("clinic")
	idB, _ := b.Derive("clinic")
	if idA == idB {
		t.Fatal("different salts must produce different identifiers")
	}
}

func TestDeriveDoesNotLeakSlug(t *testing.T) {
	d := newTestDeriver(t)
	for _, slug := range []string{"hospital-sao-jose", "clinica-vida", "fisio-center"} {
		id, err := d.Derive(slug)
		if err != nil {
			t.Fatalf("derive %q: %v", slug, err)
		}
		for _, fragment := range strings.Split(slug, "-") {
			if len(fragment) >= 4 && strings.Contains(strings.ToLower(id), fragment) {
				t.Fatalf("identifier %q leaks slug fragment %q", id, fragment)
			}
		}
	}
}

func TestDeriveRejectsEmptySlug(t *testing.T) {
	d := newTestDeriver(t)
	if _, err := d.Derive("   "); !errors.Is(err, ErrEmptySlug) {
		t.Fatalf("expected ErrEmptySlug, got %v", err)
	}
}

func TestNewDeriverRequiresSalt(t *testing.T) {
	if _, err := NewDeriver(""); !errors.Is(err, ErrMissingSalt) {
		t.Fatalf("expected ErrMissingSalt, got %v", err)
	}
}

func TestIsWellFormedAcceptsDerivedIDs(t *testing.T) {
	d := newTestDeriver(t)
	for _, slug := range []string{"a", "hospital-sao-jose", "x1", "long-slug-with-many-parts"} {
		id, err := d.Derive(slug)
		if err != nil {
			t.Fatalf("derive %q: %v", slug, err)
		}
		if !IsWellFormed(id) {
			t.Fatalf("derived id %q rejected by IsWellFormed", id)
		}
	}
}

func TestIsWellFormedRejectsBadShapes(t *testing.T) {
	cases := []string{
		"",
		"short",
		"waytoolongidentifier",
		"../../etc/pw",
		"abc def ghij",
		"abcdefghijk!",
		"abcdefghijk/",
	}
	for _, candidate := range cases {
		if IsWellFormed(candidate) {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	}
}
