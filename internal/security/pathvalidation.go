// Package security validates where report and database files may be written.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside every allowed
// directory.
var ErrPathEscape = errors.New("path escapes allowed directories")

// canonical resolves path to an absolute path with symlinks evaluated. For
// a path that does not exist yet, the deepest existing ancestor is resolved
// and the missing tail re-attached, so a not-yet-created file under a
// symlinked directory is judged by where it would really land.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	existing, tail := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, tail), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(existing), tail)
		existing = parent
	}
}

// ValidatePathWithinDirectory reports whether filePath, after symlink
// resolution, stays inside dir.
func ValidatePathWithinDirectory(filePath, dir string) error {
	target, err := canonical(filePath)
	if err != nil {
		return err
	}
	root, err := canonical(dir)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPathEscape, filePath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathEscape, filePath, dir)
	}
	return nil
}

// ValidateExportPath checks that an output file or directory lies under the
// working directory, the temp directory or one of extraDirs.
func ValidateExportPath(filePath string, extraDirs ...string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	allowed := append([]string{cwd, os.TempDir()}, extraDirs...)
	for _, dir := range allowed {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be within one of %v", ErrPathEscape, filePath, allowed)
}

// maxFilenameLen bounds sanitised names so that label-derived paths stay
// well under common filesystem limits.
const maxFilenameLen = 128

// SanitizeFilename turns a run label into a safe file name stem. Runs of
// characters other than ASCII letters, digits, '.', '_' and '-' become a
// single underscore; leading and trailing dots and underscores are dropped.
// An empty result becomes "run".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
		if b.Len() >= maxFilenameLen {
			break
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "run"
	}
	return out
}
