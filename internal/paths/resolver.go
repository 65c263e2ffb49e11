// Package paths canonicalizes peer-supplied paths before any handler
// touches the filesystem.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned for empty path parameters.
var ErrEmpty = errors.New("empty path")

// Resolver expands and canonicalizes paths relative to the agent's
// process environment (home directory, working directory).
type Resolver struct {
	home string
}

// NewResolver captures the current user's home directory.
func NewResolver() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Resolver{home: home}, nil
}

// Home returns the home directory used for ~ expansion.
func (r *Resolver) Home() string {
	return r.home
}

// Resolve validates and canonicalizes a path: ~ expands to home,
// relative paths absolutize against the working directory, and symlinks
// resolve. Paths that do not exist yet resolve through their nearest
// existing ancestor so writes to new files still canonicalize.
func (r *Resolver) Resolve(p string) (string, error) {
	if p == "" {
		return "", ErrEmpty
	}

	if p == "~" {
		p = r.home
	} else if strings.HasPrefix(p, "~/") {
		p = filepath.Join(r.home, p[2:])
	}

	if !filepath.IsAbs(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		p = abs
	}

	return canonicalize(filepath.Clean(p)), nil
}

func canonicalize(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}

	// Resolve the longest existing ancestor, then rejoin the rest.
	var suffix []string
	cur := p
	for {
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)
		cur = parent
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...)
		}
	}
}
