package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// brandLog writes to the process logger and keeps a copy of each line for the run response.
type brandLog struct {
	log   *slog.Logger
	lines []string
}

func (l *brandLog) Info(ctx context.Context, msg string, args ...any) {
	l.add(ctx, slog.LevelInfo, msg, args...)
}

func (l *brandLog) Warn(ctx context.Context, msg string, args ...any) {
	l.add(ctx, slog.LevelWarn, msg, args...)
}

func (l *brandLog) Error(ctx context.Context, msg string, args ...any) {
	l.add(ctx, slog.LevelError, msg, args...)
}

func (l *brandLog) add(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.log.Log(ctx, level, msg, args...)

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	l.lines = append(l.lines, b.String())
}
