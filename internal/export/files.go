package export

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/nvlab/pulsesweep/internal/fsutil"
	"github.com/nvlab/pulsesweep/internal/sweep"
)

// WriteAll writes <base>.csv, <base>.png and <base>.html under dir and
// returns the paths written. A result without points writes nothing.
func WriteAll(fsys fsutil.FileSystem, dir, base string, res sweep.Result) ([]string, error) {
	if len(res.Points) == 0 {
		return nil, nil
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}

	var written []string
	writeFile := func(ext string, render func(io.Writer, sweep.Result) error) error {
		path := filepath.Join(dir, base+ext)
		f, err := fsys.Create(path)
		if err != nil {
			return fmt.Errorf("export: create %s: %w", path, err)
		}
		if err := render(f, res); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := writeFile(".csv", WriteCSV); err != nil {
		return written, err
	}
	if err := writeFile(".png", WritePNG); err != nil {
		return written, err
	}
	if err := writeFile(".html", WriteHTML); err != nil {
		return written, err
	}
	return written, nil
}
