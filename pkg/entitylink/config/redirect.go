package config

import (
	"fmt"
	"strings"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
)

// RedirectMode controls how redirect references of suggested entities are
// processed (similar to a browser following an HTTP 303 or rdfs:seeAlso).
type RedirectMode int

const (
	// RedirectIgnore leaves suggestions untouched
	RedirectIgnore RedirectMode = iota
	// RedirectAddValues merges the values of redirected entities into the
	// suggested entity
	RedirectAddValues
	// RedirectFollow replaces the suggested entity by the redirected one
	RedirectFollow
)

var redirectModeNames = [...]string{
	RedirectIgnore:    "ignore",
	RedirectAddValues: "add_values",
	RedirectFollow:    "follow",
}

// String returns the configuration name of the mode
func (m RedirectMode) String() string {
	if m < 0 || int(m) >= len(redirectModeNames) {
		return fmt.Sprintf("RedirectMode(%d)", int(m))
	}
	return redirectModeNames[m]
}

// ParseRedirectMode parses a mode name (case-insensitive, '-' or '_')
func ParseRedirectMode(s string) (RedirectMode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range redirectModeNames {
		if n == name {
			return RedirectMode(i), nil
		}
	}
	return RedirectIgnore, fmt.Errorf("%w: unknown redirect mode %q", internalerr.ErrInvalidConfig, s)
}

// MarshalText implements encoding.TextMarshaler
func (m RedirectMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *RedirectMode) UnmarshalText(text []byte) error {
	mode, err := ParseRedirectMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
