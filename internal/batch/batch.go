// Package batch runs a per-file step over files and directory trees, one file
// at a time, with a progress bar.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Processor handles one file.
type Processor func(ctx context.Context, path string) error

type Failure struct {
	Path string
	Err  error
}

type Report struct {
	Processed []string
	Failed    []Failure
}

type Options struct {
	// Extensions selects files found while walking directories, e.g. ".cfg".
	// Files named explicitly are always taken. Empty means every file.
	Extensions []string
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
	Logger   *zap.Logger
}

func (o *Options) wanted(path string) bool {
	return len(o.Extensions) == 0 || slices.Contains(o.Extensions, filepath.Ext(path))
}

// Collect expands paths into a sorted, duplicate free list of files.
func Collect(paths []string, opts Options) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && opts.wanted(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Run calls process for every file in order. A failing file is recorded and
// the run goes on; cancelling ctx stops it before the next file.
func Run(ctx context.Context, files []string, opts Options, process Processor) (Report, error) {
	var report Report
	bar := newBar(len(files), opts.Progress)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if bar != nil {
			bar.Describe(filepath.Base(file))
		}
		if err := process(ctx, file); err != nil {
			if opts.Logger != nil {
				opts.Logger.Error("Error processing file", zap.String("path", file), zap.Error(err))
			}
			report.Failed = append(report.Failed, Failure{Path: file, Err: err})
		} else {
			report.Processed = append(report.Processed, file)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return report, nil
}

func newBar(n int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
