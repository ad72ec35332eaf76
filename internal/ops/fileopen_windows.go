//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/cornell/internal/errors"
)

// openExportFile creates or truncates an export file. Windows has no
// O_NOFOLLOW; ValidatePath has already rejected symlinks.
func openExportFile(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}

// openImportFile opens an import file for reading.
func openImportFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
