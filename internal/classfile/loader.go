package classfile

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// LoaderOptions configures class pool loading.
type LoaderOptions struct {
	// Inputs are class files, directories of class files, or jar archives
	// whose classes are loaded as program classes.
	Inputs []string

	// LibraryInputs are loaded as library classes: their method bodies are
	// dropped and they only contribute hierarchy and signatures.
	LibraryInputs []string

	// Workers bounds the parse worker pool. Zero means NumCPU.
	Workers int
}

// LoadPool reads every class file reachable from the given inputs into a
// new pool and resolves the class hierarchy. Individual files that fail to
// parse are logged and skipped; the load only fails when an input cannot be
// read at all.
func LoadPool(ctx context.Context, opts LoaderOptions) (*Pool, error) {
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := NewPool()
	var mu sync.Mutex

	loadGroup := func(inputs []string, library bool) error {
		workerPool := pool.New().WithMaxGoroutines(workers)
		for _, input := range inputs {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := loadInput(input, func(origin string, data []byte) {
				workerPool.Go(func() {
					cls, err := Read(data)
					if err != nil {
						// A broken class file is not fatal; the pool just
						// ends up without it.
						slog.Warn("skipping unreadable class", "origin", origin, "error", err)
						return
					}
					if library {
						cls.Library = true
						for _, m := range cls.Methods {
							m.Code = nil
						}
					}
					mu.Lock()
					p.Add(cls)
					mu.Unlock()
				})
			})
			if err != nil {
				workerPool.Wait()
				return fmt.Errorf("loading %s: %w", input, err)
			}
		}
		workerPool.Wait()
		return nil
	}

	// Library classes load first so that a program class with the same name
	// replaces its library twin.
	if err := loadGroup(opts.LibraryInputs, true); err != nil {
		return nil, err
	}
	if err := loadGroup(opts.Inputs, false); err != nil {
		return nil, err
	}

	p.ResolveHierarchy()

	slog.Info("loaded class pool", "classes", p.Size(),
		"inputs", len(opts.Inputs), "library_inputs", len(opts.LibraryInputs))
	return p, nil
}

func loadInput(input string, parse func(origin string, data []byte)) error {
	info, err := os.Stat(input)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".class") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			parse(path, data)
			return nil
		})
	}

	if strings.HasSuffix(input, ".jar") || strings.HasSuffix(input, ".zip") {
		return loadArchive(input, parse)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	parse(input, data)
	return nil
}

func loadArchive(path string, parse func(origin string, data []byte)) error {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, entry := range archive.File {
		if !strings.HasSuffix(entry.Name, ".class") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("opening %s!%s: %w", path, entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("reading %s!%s: %w", path, entry.Name, err)
		}
		parse(path+"!"+entry.Name, data)
	}
	return nil
}
