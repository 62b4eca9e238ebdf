// SPDX-License-Identifier: MPL-2.0

// Package exclude holds the noise policy applied to runtime-traced paths.
//
// A Policy is an ordered list of doublestar glob patterns; a path is excluded
// when any pattern matches it. The default table covers virtual filesystems,
// system and user settings, the session bus and font/GTK caches, none of
// which can be carried inside a relocatable bundle.
package exclude

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// systemPatterns do not depend on the user's home directory.
var systemPatterns = []string{
	// virtual filesystems
	"/sys/**",
	"/proc/**",
	"/dev/**",
	"/run/**",
	// system settings
	"/etc/**",
	// the session bus is not reachable from the bundle
	"/var/lib/dbus/**",
	// font configuration and caches
	"**/fonts/**/*.conf",
	"**/fonts/**/*.otf",
	"**/fontconfig/**/*.conf",
	"**/fontconfig/**/*.cache*",
	// GTK caches
	"**/gdk-pixbuf-2.0/**/loaders.cache",
	"**/gio/**/giomodule.cache",
	"**/glib-2.0/**/gschemas.compiled",
}

// homePatterns are joined to the user's home directory.
var homePatterns = []string{
	"/.cache/**",
	"/.config/**",
	"/.fonts/**",
}

// InvalidPatternError is returned by Validate for a malformed glob.
type InvalidPatternError struct {
	Pattern string
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid exclude pattern %q", e.Pattern)
}

// Unwrap returns doublestar.ErrBadPattern for errors.Is.
func (e *InvalidPatternError) Unwrap() error { return doublestar.ErrBadPattern }

// Policy is an immutable, ordered set of exclusion globs.
type Policy struct {
	patterns []string
}

// New creates a Policy from explicit patterns.
func New(patterns ...string) *Policy {
	return &Policy{patterns: slices.Clone(patterns)}
}

// Default returns the built-in policy for the given home directory. An empty
// home leaves out the per-user patterns.
func Default(home string) *Policy {
	patterns := slices.Clone(systemPatterns)
	if home != "" {
		prefix := escapeMeta(strings.TrimRight(home, "/"))
		for _, p := range homePatterns {
			patterns = append(patterns, prefix+p)
		}
	}
	return &Policy{patterns: patterns}
}

// DefaultForUser is Default with the current user's home directory.
func DefaultForUser() *Policy {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return Default(home)
}

// With returns a new Policy with extra patterns appended.
func (p *Policy) With(extra ...string) *Policy {
	return &Policy{patterns: append(slices.Clone(p.patterns), extra...)}
}

// Patterns returns a copy of the pattern table in evaluation order.
func (p *Policy) Patterns() []string {
	return slices.Clone(p.patterns)
}

// Validate reports the first malformed pattern, if any.
func (p *Policy) Validate() error {
	for _, pattern := range p.patterns {
		if !doublestar.ValidatePattern(pattern) {
			return &InvalidPatternError{Pattern: pattern}
		}
	}
	return nil
}

// Excluded reports whether path matches any pattern. Malformed patterns never
// match.
func (p *Policy) Excluded(path string) bool {
	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
