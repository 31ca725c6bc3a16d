// Package discovery enumerates candidate source files under one or more
// roots, applying an extension whitelist, directory exclusions, glob
// patterns, and hierarchical .indexignore rules, then returns an ordered,
// deduplicated list of absolute paths.
package discovery

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/noahbutcher97/ue5source/internal/config"
	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
	"github.com/noahbutcher97/ue5source/internal/indexignore"
)

// Origin classifies a root as part of the engine or the consuming project,
// per the Chunk.origin field.
type Origin string

const (
	OriginEngine  Origin = "engine"
	OriginProject Origin = "project"
)

// Root is one discovery input: a directory to walk, tagged with the
// origin assigned to everything found beneath it.
type Root struct {
	Path   string
	Origin Origin
}

// Sources describes every way a discovery run can be seeded: root
// directories (walked recursively), an explicit directories file (one
// root per line), and an explicit file list (already-resolved paths).
type Sources struct {
	Roots           []Root
	DirectoriesFile string
	Files           []string
}

// File is one discovered source file.
type File struct {
	Path   string
	Origin Origin
}

// Stats summarises a discovery run for progress reporting.
type Stats struct {
	FilesConsidered     int
	FilesSkippedSize    int
	FilesSkippedExt     int
	FilesSkippedDir     int
	FilesSkippedPattern int
	Errors              []string
}

// ProgressSink receives one notification per file completed, the
// suspension point discovery offers per the concurrency model.
type ProgressSink func(considered int)

// Discover walks every source and returns the deduplicated, sorted file
// list plus run statistics. It returns EmptyDiscovery only when zero files
// are found across every source and reuseHint is false (callers doing an
// incremental update against a non-empty cache pass reuseHint=true).
func Discover(ctx context.Context, cfg config.Config, sources Sources, reuseHint bool, progress ProgressSink) ([]File, Stats, error) {
	ign, err := (indexignore.Loader{FileName: cfg.IgnoreFileName}).Load(rootPaths(sources.Roots))
	if err != nil {
		return nil, Stats{}, coreerrors.Wrap(coreerrors.KindIO, "load .indexignore rules", err)
	}

	var (
		mu      sync.Mutex
		found   []File
		stats   Stats
		counted int
	)

	extSet := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		extSet[strings.ToLower(e)] = true
	}
	if cfg.IncludeDocs {
		extSet[".md"] = true
		extSet[".txt"] = true
	}
	dirDeny := make(map[string]bool, len(cfg.DirExclusions))
	for _, d := range cfg.DirExclusions {
		dirDeny[d] = true
	}

	record := func(f File, skip string) {
		mu.Lock()
		defer mu.Unlock()
		counted++
		switch skip {
		case "":
			found = append(found, f)
		case "size":
			stats.FilesSkippedSize++
		case "ext":
			stats.FilesSkippedExt++
		case "dir":
			stats.FilesSkippedDir++
		case "pattern":
			stats.FilesSkippedPattern++
		}
		stats.FilesConsidered++
		if progress != nil {
			progress(counted)
		}
	}
	recordErr := func(msg string) {
		mu.Lock()
		stats.Errors = append(stats.Errors, msg)
		mu.Unlock()
	}

	classify := func(path string, size int64, isDir bool) string {
		if isDir {
			if dirDeny[filepath.Base(path)] {
				return "dir"
			}
			if ign.Match(path, true) {
				return "dir"
			}
			return ""
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !extSet[ext] {
			return "ext"
		}
		if size > cfg.MaxFileBytes {
			return "size"
		}
		base := filepath.Base(path)
		for _, pat := range cfg.FileExclusions {
			if ok, _ := filepath.Match(pat, base); ok {
				return "pattern"
			}
		}
		if ign.Match(path, false) {
			return "pattern"
		}
		return ""
	}

	roots := append([]Root(nil), sources.Roots...)
	if sources.DirectoriesFile != "" {
		extra, err := readLines(sources.DirectoriesFile)
		if err != nil {
			return nil, stats, coreerrors.Wrap(coreerrors.KindIO, "read directories file", err)
		}
		for _, d := range extra {
			roots = append(roots, Root{Path: d, Origin: OriginProject})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			return walkRoot(gctx, root, classify, record, recordErr)
		})
	}
	for _, f := range sources.Files {
		info, err := os.Stat(f)
		if err != nil {
			recordErr(err.Error())
			continue
		}
		if skip := classify(f, info.Size(), false); skip == "" {
			record(File{Path: absPath(f), Origin: OriginProject}, "")
		} else {
			record(File{}, skip)
		}
	}

	if err := g.Wait(); err != nil {
		if err == context.Canceled {
			return nil, stats, coreerrors.New(coreerrors.KindCancelled, "discovery cancelled")
		}
		return nil, stats, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	found = dedupe(found)

	if len(found) == 0 && !reuseHint {
		return found, stats, coreerrors.New(coreerrors.KindEmptyDiscovery, "no files discovered across any root")
	}
	return found, stats, nil
}

func walkRoot(ctx context.Context, root Root, classify func(string, int64, bool) string, record func(File, string), recordErr func(string)) error {
	return filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			recordErr(err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root.Path {
				if skip := classify(path, 0, true); skip != "" {
					mu.Lock()
					stats.FilesSkippedDir++
					mu.Unlock()
					return filepath.SkipDir
				}
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			recordErr(err.Error())
			return nil
		}
		skip := classify(path, info.Size(), false)
		if skip == "" {
			record(File{Path: absPath(path), Origin: root.Origin}, "")
		} else {
			record(File{}, skip)
		}
		return nil
	})
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func dedupe(files []File) []File {
	out := files[:0]
	var last string
	for _, f := range files {
		if f.Path == last && len(out) > 0 {
			continue
		}
		out = append(out, f)
		last = f.Path
	}
	return out
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func rootPaths(roots []Root) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.Path
	}
	return out
}
