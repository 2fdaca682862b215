// Package source reads blocklist files from a local directory, typically a
// synced mirror of an upstream blocklist repository.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/ingest"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds the directory walk.
const DefaultMaxDepth = 10

// ErrNotDirectory is returned when Root exists but is not a directory.
var ErrNotDirectory = errors.New("source root is not a directory")

// Dir is a directory of list files.
type Dir struct {
	Root string
	// MaxDepth limits how deep below Root files are read. Files directly in
	// Root are at depth 1. Hidden directories are never entered.
	MaxDepth int
	// Filter selects the files to read. Nil reads every regular file.
	Filter *ingest.Filter
	// Workers bounds concurrent file reads. Zero means 4.
	Workers int
	Logger  *slog.Logger
}

type fileInfo struct {
	path    string
	modTime time.Time
	size    int64
}

// Fetch reads the matching files. Keys of the returned map are paths
// relative to Root using forward slashes.
func (d *Dir) Fetch(ctx context.Context) (index.Input, error) {
	files, err := d.scan(ctx)
	if err != nil {
		return index.Input{}, err
	}

	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	contents := make(map[string]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(f.path)))
			if err != nil {
				return fmt.Errorf("read %s: %w", f.path, err)
			}
			mu.Lock()
			contents[f.path] = string(b)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return index.Input{}, err
	}

	d.logger().Debug("source files read", "root", d.Root, "files", len(contents))
	return index.Input{Files: contents, Signature: signature(files)}, nil
}

// Signature describes the current state of the matching files without
// reading them. It changes whenever a file is added, removed, resized or
// touched.
func (d *Dir) Signature(ctx context.Context) (string, error) {
	files, err := d.scan(ctx)
	if err != nil {
		return "", err
	}
	return signature(files), nil
}

func (d *Dir) scan(ctx context.Context) ([]fileInfo, error) {
	st, err := os.Stat(d.Root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, d.Root)
	}

	maxDepth := d.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var files []fileInfo
	err = filepath.WalkDir(d.Root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if de.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(de.Name(), ".") || strings.Count(rel, "/")+1 >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !de.Type().IsRegular() {
			return nil
		}
		if d.Filter != nil && !d.Filter.Match(rel) {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		files = append(files, fileInfo{path: rel, modTime: info.ModTime(), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.Root, err)
	}
	return files, nil
}

func (d *Dir) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func signature(files []fileInfo) string {
	var newest time.Time
	var total int64
	for _, f := range files {
		if f.modTime.After(newest) {
			newest = f.modTime
		}
		total += f.size
	}
	return fmt.Sprintf("%d|%d|%d", newest.UnixNano(), len(files), total)
}
