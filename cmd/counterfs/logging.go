package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/counterfs/internal/slogger"
)

type logFlags struct {
	level   string
	include string
	exclude string
}

func (f *logFlags) register(cmd *cli.Command) {
	cmd.Flags().StringVar(&f.level, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.include, "log-include", "", "comma separated attr globs, only matching records are logged")
	cmd.Flags().StringVar(&f.exclude, "log-exclude", "", "comma separated attr globs, matching records are dropped")
}

// setup installs the default logger. A terminal gets the filtered console
// handler; anything else gets JSON lines.
func (f *logFlags) setup() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", f.level, err)
	}

	if !term.IsTerminal(int(os.Stderr.Fd())) && f.include == "" && f.exclude == "" {
		l := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(l)
		return l, nil
	}

	err := slogger.Use(slogger.HandlerOptions{
		Level:   level,
		Include: splitList(f.include),
		Exclude: splitList(f.exclude),
		Writer:  os.Stderr,
		Color:   term.IsTerminal(int(os.Stderr.Fd())),
		Source:  level <= slog.LevelDebug,
	})
	if err != nil {
		return nil, err
	}
	return slog.Default(), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
