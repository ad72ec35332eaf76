//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/cornell/internal/errors"
)

// noFollowFlags refuse a symlink in the final path component. ValidatePath
// keeps export files directly inside an allowed directory, so the final
// component is the only one left to protect.
const noFollowFlags = syscall.O_NOFOLLOW | syscall.O_CLOEXEC

// openExportFile creates or truncates an export file without following symlinks.
func openExportFile(path string, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|noFollowFlags, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot export to a symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openImportFile opens an import file for reading without following symlinks.
func openImportFile(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|noFollowFlags, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("cannot import from a symlink")
		case stderrors.Is(err, syscall.ENOENT):
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
