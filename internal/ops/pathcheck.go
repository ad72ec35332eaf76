package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
)

// PathCheckMode says whether a path is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

// Export file extensions.
const (
	ExtJSONL = ".jsonl"
	ExtHTML  = ".html"
)

// BaseDirName is the Cornell home directory under the user's home.
const BaseDirName = ".cornell"

// ValidatePath decides whether an export or import may touch path.
//
// The file must carry ext, contain no ".." component and sit directly inside
// ~/.cornell/exports or one of cfg.AllowedPaths. Nested directories are
// refused so no intermediate component can be swapped for a symlink after
// the check; the open itself uses O_NOFOLLOW for the last component.
// AllowUnsafePaths lifts the directory rule only. Symlinked targets are
// refused in every mode.
func ValidatePath(path string, mode PathCheckMode, ext string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	target := filepath.Clean(path)
	if filepath.Ext(target) != ext {
		return errors.NewInvalidRequest(fmt.Sprintf("path must have %s extension", ext))
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkParentDir(filepath.Dir(target), cfg); err != nil {
			return err
		}
	}
	return checkTarget(target, path, mode)
}

// checkParentDir requires dir to be one of the allowed directories and not
// itself a symlink.
func checkParentDir(dir string, cfg *config.Config) error {
	allowed, err := allowedDirs(cfg)
	if err != nil {
		return err
	}
	if !slices.Contains(allowed, filepath.Clean(dir)) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
	}
	if isSymlink(dir) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// checkTarget requires a file to read to exist and refuses symlinks.
// display is the path as the caller gave it.
func checkTarget(target, display string, mode PathCheckMode) error {
	if mode == PathCheckRead {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return errors.NewFileNotFound(display)
		}
	}
	if isSymlink(target) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// allowedDirs lists the default exports directory plus every absolute
// allowed_paths entry. Entries that are symlinks are resolved so they compare
// against the real parent of the target.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			if abs, err = filepath.EvalSymlinks(abs); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

// DefaultExportsDir returns ~/.cornell/exports.
func DefaultExportsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, BaseDirName, "exports"), nil
}

// containsTraversal reports a ".." component. Forward slashes count as
// separators on every platform.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var (
	filenameUnsafe = strings.NewReplacer("/", "-", "\\", "-", "..", "-")
	dashRuns       = regexp.MustCompile(`-{2,}`)
)

// SanitizeForFilename turns a note title into a file name stem: separators
// and ".." become dashes, control characters go, dash runs collapse.
func SanitizeForFilename(s string) string {
	s = filenameUnsafe.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(dashRuns.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
