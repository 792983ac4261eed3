package export

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SaveToFile streams a download into path through a temp file in the same
// directory; the final name only appears once the run completed. An empty path
// or a directory gets the download's own file name.
func SaveToFile(ctx context.Context, d *Download, path string) (string, Stats, error) {
	finalPath, err := resolveOutputPath(path, d.Filename)
	if err != nil {
		return "", Stats{}, err
	}
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", Stats{}, eris.Wrapf(err, "export: create output dir %s", dir)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+"-*")
	if err != nil {
		return "", Stats{}, eris.Wrap(err, "export: create temp file")
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	writer := bufio.NewWriterSize(tempFile, 1<<20)
	stats, err := d.Stream(ctx, writer)
	if err != nil {
		return "", stats, err
	}
	if err := writer.Flush(); err != nil {
		return "", stats, eris.Wrap(err, "export: flush output")
	}
	if err := tempFile.Close(); err != nil {
		return "", stats, eris.Wrap(err, "export: close temp file")
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", stats, eris.Wrap(err, "export: move file into place")
	}
	cleanup = false

	zap.L().Info("export written", zap.String("path", finalPath), zap.Int("rows", stats.Emitted))
	return finalPath, stats, nil
}

func resolveOutputPath(path, fileName string) (string, error) {
	if path == "" {
		return fileName, nil
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(path, fileName), nil
	case err == nil || os.IsNotExist(err):
		return path, nil
	}
	return "", eris.Wrapf(err, "export: inspect output path %s", path)
}
