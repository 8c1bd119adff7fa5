package scanner

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoInput  = errors.New("no path provided")
	ErrExcluded = errors.New("excluded by filter")
)

// Source is one .java file found on disk or inside an archive.
type Source struct {
	Path string
	Load func() ([]byte, error)
}

type FileResult struct {
	Path   string
	Result syntax.Result
	Error  string
}

func (f FileResult) Failed() bool {
	return f.Error != "" || !f.Result.Success
}

// Filter decides which relative paths take part in a scan. Patterns use
// glob syntax with '/' as separator and are matched against the path
// relative to the scan root, with and without a leading slash, so that
// "**/build/**" also excludes a top-level build directory.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile include pattern %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether rel is included and not excluded. A filter with
// no include patterns includes every .java file.
func (f *Filter) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if f == nil {
		return strings.HasSuffix(rel, ".java")
	}
	if matchAny(f.exclude, rel) {
		return false
	}
	if len(f.include) == 0 {
		return strings.HasSuffix(rel, ".java")
	}
	return matchAny(f.include, rel)
}

func matchAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}
	return false
}

// Collect lists the sources under path, which may be a directory, a
// single .java file or a .zip/.jar archive. A single file must pass
// filter on its base name. Results are sorted by path.
func Collect(path string, filter *Filter) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var sources []Source
	switch {
	case info.IsDir():
		sources, err = collectDir(path, filter)
	case isArchive(path):
		sources, err = collectArchive(path, filter)
	case filter.Match(filepath.Base(path)):
		sources = []Source{fileSource(path)}
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrExcluded)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}

func isArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".zip" || ext == ".jar"
}

func fileSource(path string) Source {
	return Source{
		Path: path,
		Load: func() ([]byte, error) {
			return os.ReadFile(path)
		},
	}
}

func collectDir(root string, filter *Filter) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if filter.Match(rel) {
			sources = append(sources, fileSource(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return sources, nil
}

// collectArchive reads matching entries eagerly so that the archive can
// be closed before analysis starts.
func collectArchive(path string, filter *Filter) ([]Source, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	defer r.Close()

	var sources []Source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !filter.Match(f.Name) {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", f.Name, path, err)
		}
		sources = append(sources, Source{
			Path: path + "!" + f.Name,
			Load: func() ([]byte, error) { return data, nil },
		})
	}
	return sources, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// AnalyzeSources analyzes sources in parallel using up to jobs
// goroutines (GOMAXPROCS when jobs <= 0). Results keep the order of
// sources. onDone, if set, is called once per finished source and must
// be safe for concurrent use.
func AnalyzeSources(ctx context.Context, sources []Source, jobs int, onDone func(FileResult)) ([]FileResult, error) {
	results := make([]FileResult, len(sources))
	if len(sources) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(sources)))

	for i, src := range sources {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			fr := FileResult{Path: src.Path}
			data, err := src.Load()
			if err != nil {
				fr.Error = fmt.Sprintf("read %s: %v", src.Path, err)
				fr.Result = syntax.Failed(fr.Error)
			} else {
				start := time.Now()
				fr.Result = syntax.Analyze(string(data))
				metrics.Observe(metrics.SurfaceScan, start, fr.Result)
			}
			results[i] = fr
			if onDone != nil {
				onDone(fr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AnalyzePaths collects and analyzes every source under paths.
func AnalyzePaths(ctx context.Context, paths []string, filter *Filter, jobs int) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}
	var sources []Source
	for _, p := range paths {
		found, err := Collect(p, filter)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	return AnalyzeSources(ctx, sources, jobs, nil)
}
