package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	logFileExt        = ".jsonl"
	defaultMaxWorkers = 10
	maxLineBytes      = 10 * 1024 * 1024
)

type Loader struct {
	maxWorkers int
	logger     zerolog.Logger
}

func New() *Loader {
	return &Loader{
		maxWorkers: defaultMaxWorkers,
		logger:     zerolog.Nop(),
	}
}

func (l *Loader) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

func (l *Loader) SetMaxWorkers(n int) {
	if n > 0 {
		l.maxWorkers = n
	}
}

// CollectOptions bounds a file collection. A zero Limit means no cap; a zero
// ModifiedSince disables the modification-time filter.
type CollectOptions struct {
	Limit         int
	ModifiedSince time.Time
}

type collectedFile struct {
	path    string
	modTime time.Time
}

// CollectFiles walks roots recursively and returns the log files found, most
// recently modified first. Unreadable directories are skipped.
func (l *Loader) CollectFiles(roots []string, opts CollectOptions) []string {
	var files []collectedFile
	seen := make(map[string]bool)

	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() || !strings.HasSuffix(strings.ToLower(d.Name()), logFileExt) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("skipping file without stat info")
				return nil
			}
			if !opts.ModifiedSince.IsZero() && info.ModTime().Before(opts.ModifiedSince) {
				return nil
			}
			if seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, collectedFile{path: path, modTime: info.ModTime()})
			return nil
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path < files[j].path
	})

	if opts.Limit > 0 && len(files) > opts.Limit {
		files = files[:opts.Limit]
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}

	l.logger.Debug().Int("files", len(paths)).Strs("roots", roots).Msg("collected log files")
	return paths
}

// LoadClaude parses Claude transcripts in parallel. Results keep the order of paths.
func (l *Loader) LoadClaude(ctx context.Context, paths []string, windowStart time.Time) ([]ClaudeFileResult, error) {
	return parseAll(ctx, l.maxWorkers, paths, func(path string) ClaudeFileResult {
		return l.ParseClaudeFile(path, windowStart)
	})
}

// LoadCodex parses Codex sessions in parallel. Each file is still read
// sequentially by a single goroutine since delta reconstruction depends on line order.
func (l *Loader) LoadCodex(ctx context.Context, paths []string) ([]CodexFileResult, error) {
	return parseAll(ctx, l.maxWorkers, paths, l.ParseCodexFile)
}

func parseAll[T any](ctx context.Context, workers int, paths []string, parse func(string) T) ([]T, error) {
	results := make([]T, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic while parsing %s: %v", path, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = parse(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)
	return scanner
}
