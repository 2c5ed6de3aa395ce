// Package publicid derives the opaque, URL-safe identifier that represents
// a tenant externally. The internal slug never leaves the service; the
// public identifier is a one-way digest of slug plus a system-wide salt.
package publicid

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Length is the exact character count of every public identifier.
const Length = 12

var (
	ErrEmptySlug   = errors.New("empty_slug")
	ErrMissingSalt = errors.New("missing_salt")
)

// Deriver computes public identifiers with a fixed salt. The salt must stay
// stable across restarts or previously issued identifiers stop resolving.
type Deriver struct {
	salt string
}

func NewDeriver(salt string) (*Deriver, error) {
	if strings.TrimSpace(salt) == "" {
		return nil, ErrMissingSalt
	}
	return &Deriver{salt: salt}, nil
}

// Derive returns the deterministic public identifier for a slug.
func (d *Deriver) Derive(slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", ErrEmptySlug
	}
	sum := sha256.Sum256([]byte(slug + d.salt))
	encoded := base64.RawURLEncoding.EncodeToString(sum[:])
	return encoded[:Length], nil
}

// IsWellFormed reports whether a candidate has the exact shape of a derived
// identifier. Used to reject malformed input before any storage lookup.
func IsWellFormed(candidate string) bool {
	if len(candidate) != Length {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
