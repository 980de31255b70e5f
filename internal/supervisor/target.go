package supervisor

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// ///////////////////////////////////////////////
// Target Resolution
// ///////////////////////////////////////////////

// decodeArg checks that a launch argument is usable text. Arguments coming
// from the Windows service manager are converted from UTF-16, where an
// unpaired surrogate turns into U+FFFD, so the replacement rune is rejected
// along with invalid UTF-8.
func decodeArg(raw string) (string, error) {
	if !utf8.ValidString(raw) || strings.ContainsRune(raw, utf8.RuneError) {
		return "", fmt.Errorf("%w: %q", ErrArgumentDecode, raw)
	}
	return raw, nil
}

// Resolve returns the absolute, symlink-free form of path. It fails with
// [ErrTargetNotFound] when the path does not exist.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTargetNotFound, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTargetNotFound, path, err)
	}
	return resolved, nil
}

// allowed reports whether target matches one of patterns. An empty list
// allows every target.
func allowed(target string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		ok, err := doublestar.PathMatch(p, target)
		if err != nil {
			return false, fmt.Errorf("allow pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
