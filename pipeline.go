package bps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/bps/sheet"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const importWorkers = 4

func isImage(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".png", ".gif", ".bmp":
		return true
	}
	return false
}

// sheetName returns the name used for file found under base: the relative
// path with forward slashes and no extension.
func sheetName(base, file string) (string, error) {
	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))), nil
}

func (b *BPS) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal image file
			if !info.Mode().IsRegular() || !isImage(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				// A worker failed and has already reported why
				return filepath.SkipAll
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (b *BPS) importWorker(cancel context.CancelFunc, base string, in <-chan string, opts []sheet.Option) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			name, err := sheetName(base, file)
			if err != nil {
				cancel()
				errc <- err
				return
			}

			if err := b.Add(name, file, opts...); err != nil {
				// Not an indexed image or too small to hold a tile, keep going
				if errors.Is(err, sheet.ErrNotPaletted) || errors.Is(err, sheet.ErrTooManyColors) || errors.Is(err, sheet.ErrInvalidTileSize) {
					b.logger.Info("skipping image", zap.String("file", file), zap.Error(err))
					continue
				}
				cancel()
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	var err error
	for e := range mergeErrors(errs...) {
		err = multierr.Append(err, e)
	}
	return err
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Import adds every PNG, GIF and BMP image found under path to the bank,
// each named after its path relative to path without the extension. If path
// is a single file it is named after its base name. Images that are not
// indexed are skipped unless sheet.WithQuantize is passed, as are images
// smaller than the tile size.
func (b *BPS) Import(path string, opts ...sheet.Option) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	base := dir
	if !info.IsDir() {
		base = filepath.Dir(dir)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := b.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < importWorkers; i++ {
		errc, err := b.importWorker(cancelFunc, base, files, opts)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return err
	}

	names, err := b.Names()
	if err != nil {
		return err
	}
	b.logger.Info("import finished", zap.String("path", dir), zap.Int("sheets", len(names)))

	return nil
}
