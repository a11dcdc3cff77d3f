package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// WriteFile renders into a temporary file next to path and renames it into
// place. On any failure the temporary file is removed and path is left as it
// was, so a failed run never leaves a partial report behind.
func WriteFile(path string, render func(io.Writer) error) error {
	log := logger.GetGlobalLogger().WithComponent("reporter").WithField("output_path", path)

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.WriteError(errors.CodeDirectoryError, path, err)
	}
	if !info.IsDir() {
		return errors.WriteError(errors.CodeDirectoryError, path, fmt.Errorf("%s is not a directory", dir))
	}
	if target, err := os.Stat(path); err == nil && target.IsDir() {
		return errors.WriteError(errors.CodeOutputNotWritable, path, fmt.Errorf("%s is a directory", path))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WriteError(errors.CodeOutputNotWritable, path, err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.WithError(rmErr).Warn("Failed to remove temporary report file")
		}
	}

	if err := render(tmp); err != nil {
		cleanup()
		if _, ok := errors.AsReconcilerError(err); ok {
			return err
		}
		return errors.WriteError(errors.CodeRenderFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.WriteError(errors.CodeOutputNotWritable, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.WriteError(errors.CodeOutputNotWritable, path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return errors.WriteError(errors.CodeOutputNotWritable, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return errors.WriteError(errors.CodeOutputNotWritable, path, err)
	}

	log.Debug("Report written")
	return nil
}
