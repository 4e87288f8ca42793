// Package slogger is the console slog handler used by the counterfs
// commands. Records can be filtered on their attributes with glob patterns
// matched against "key" and "key=value".
package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"tractor.dev/counterfs/internal/glob"
)

type HandlerOptions struct {
	Level   slog.Leveler
	Include []string // If non-empty, records need an attr matching ANY pattern
	Exclude []string // Records with an attr matching ANY pattern are dropped
	Writer  io.Writer
	Color   bool
	Source  bool
}

type filter struct {
	pattern *glob.Pattern
	// "key=*" patterns do not match nil values, so "err=*" skips err=<nil>
	key *glob.Pattern
}

type Handler struct {
	opts    HandlerOptions
	include []filter
	exclude []filter
	attrs   []slog.Attr
	group   string

	mu *sync.Mutex
}

var _ slog.Handler = (*Handler)(nil)

func NewHandler(opts HandlerOptions) (*Handler, error) {
	include, err := compileFilters(opts.Include)
	if err != nil {
		return nil, fmt.Errorf("slogger: include: %w", err)
	}
	exclude, err := compileFilters(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("slogger: exclude: %w", err)
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{opts: opts, include: include, exclude: exclude, mu: &sync.Mutex{}}, nil
}

func New(opts HandlerOptions) (*slog.Logger, error) {
	h, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// Use installs a handler built from opts as the slog default.
func Use(opts HandlerOptions) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(l)
	return nil
}

func compileFilters(patterns []string) ([]filter, error) {
	var filters []filter
	for _, p := range patterns {
		pat, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		f := filter{pattern: pat}
		if key, ok := strings.CutSuffix(p, "=*"); ok {
			if f.key, err = glob.Compile(key); err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func formatValue(v slog.Value) string {
	if v.Kind() == slog.KindAny && v.Any() == nil {
		return "<nil>"
	}
	return v.String()
}

func matches(filters []filter, key string, v slog.Value) bool {
	isNil := v.Kind() == slog.KindAny && v.Any() == nil
	full := key + "=" + formatValue(v)
	for _, f := range filters {
		if isNil && f.key != nil && f.key.Match(key) {
			continue
		}
		if f.pattern.Match(full) || f.pattern.Match(key) {
			return true
		}
	}
	return false
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// allow applies the include and exclude filters to every attribute of the
// record, including those added with Logger.With.
func (h *Handler) allow(attrs []slog.Attr) bool {
	var included, excluded bool
	for _, a := range attrs {
		if len(h.include) > 0 && matches(h.include, a.Key, a.Value) {
			included = true
		}
		if len(h.exclude) > 0 && matches(h.exclude, a.Key, a.Value) {
			excluded = true
		}
	}
	if len(h.include) > 0 && !included {
		return false
	}
	return !excluded
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		attrs = append(attrs, a)
		return true
	})
	if !h.allow(attrs) {
		return nil
	}

	var b strings.Builder
	b.WriteString(h.dim(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	for _, a := range attrs {
		if a.Key == "component" {
			fmt.Fprintf(&b, " %s:", a.Value.String())
			break
		}
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range attrs {
		if a.Key == "component" {
			continue
		}
		fmt.Fprintf(&b, " %s%s", h.dim(a.Key+"="), formatValue(a.Value))
	}
	if h.opts.Source && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(&b, " %s", h.dim(fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.Writer, b.String())
	return err
}

func (h *Handler) dim(s string) string {
	if !h.opts.Color {
		return s
	}
	return "\033[90m" + s + "\033[0m"
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	h2.group = name
	return &h2
}
