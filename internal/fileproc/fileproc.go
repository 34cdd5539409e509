// Package fileproc decodes input files concurrently.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// LoadError is a failure to load one file.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// LoadErrors collects per-file failures (thread-safe).
type LoadErrors struct {
	mu     sync.Mutex
	Errors []LoadError
}

// Add records a failure for path.
func (e *LoadErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, LoadError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors reports whether any failure was recorded.
func (e *LoadErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the failures ordered by path.
func (e *LoadErrors) Sorted() []LoadError {
	e.mu.Lock()
	out := append([]LoadError(nil), e.Errors...)
	e.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (e *LoadErrors) Error() string {
	errs := e.Sorted()
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d files failed to load:", len(errs))
	for _, le := range errs {
		b.WriteString("\n  ")
		b.WriteString(le.Error())
	}
	return b.String()
}

// DefaultWorkerMultiplier is applied to NumCPU when no worker count is given.
// Decoding mixes file I/O with cgo parsing.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Options tune Map.
type Options struct {
	// Workers bounds concurrency; <= 0 uses DefaultWorkerMultiplier x NumCPU.
	Workers    int
	OnProgress ProgressFunc
}

// Map applies fn to every file in parallel and returns the successful
// results in input order. Failures and cancellations are collected in the
// returned LoadErrors, which is nil when every file succeeded.
func Map[T any](ctx context.Context, files []string, opts Options, fn func(context.Context, string) (T, error)) ([]T, *LoadErrors) {
	if len(files) == 0 {
		return nil, nil
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	type slot struct {
		v  T
		ok bool
	}
	slots := make([]slot, len(files))
	errs := &LoadErrors{}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if opts.OnProgress != nil {
					opts.OnProgress()
				}
			}()
			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return err
			}
			v, err := fn(ctx, path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}
			// Each goroutine owns its slot.
			slots[i] = slot{v: v, ok: true}
			return nil
		})
	}
	_ = p.Wait()

	out := make([]T, 0, len(files))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.v)
		}
	}
	if !errs.HasErrors() {
		return out, nil
	}
	return out, errs
}
