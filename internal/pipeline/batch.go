package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult collects per-file outcomes of a directory run. Files that
// failed to parse appear only in Failed; every other file has a FileResult
// regardless of how many placeholders it still carries.
type BatchResult struct {
	Results []*FileResult
	Failed  map[string]error
}

// RunBatch translates every source file under root. Files are independent:
// each gets its own IR tree, diagnostics log and applier, and a failure in
// one never touches its siblings. jobs bounds the number of files in
// flight.
func (p *Pipeline) RunBatch(ctx context.Context, root string, ignore []string, jobs int) (*BatchResult, error) {
	paths, err := p.collectFiles(root, ignore)
	if err != nil {
		return nil, err
	}

	out := &BatchResult{Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			res, err := p.RunFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Parse failures are fatal per file, never per batch.
				out.Failed[path] = err
				return nil
			}
			out.Results = append(out.Results, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	sort.Slice(out.Results, func(i, j int) bool {
		return out.Results[i].SourcePath < out.Results[j].SourcePath
	})
	return out, nil
}

func (p *Pipeline) collectFiles(root string, ignore []string) ([]string, error) {
	exts := p.Parser.Language().FileExtensions()
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range ignore {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(d.Name(), ext) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
