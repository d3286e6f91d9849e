package logger

import (
	"context"
	"log/slog"
	"runtime"
)

// conditionalSourceHandler decorates a handler so that source locations are
// attached only for selected levels. Routine info/debug lines stay compact;
// warnings and errors carry the file:line that produced them.
type conditionalSourceHandler struct {
	inner        slog.Handler
	sourceLevels map[slog.Level]struct{}
}

// NewConditionalSourceHandler wraps a handler and attaches source locations
// for the given levels only. The wrapped handler must be built with
// AddSource disabled, otherwise every record gets a source twice.
func NewConditionalSourceHandler(inner slog.Handler, levels ...slog.Level) slog.Handler {
	set := make(map[slog.Level]struct{}, len(levels))
	for _, level := range levels {
		set[level] = struct{}{}
	}
	return &conditionalSourceHandler{inner: inner, sourceLevels: set}
}

func (h *conditionalSourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if _, ok := h.sourceLevels[r.Level]; ok {
		// Skip Handle itself plus the slog frontend frame.
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		frame, _ := runtime.CallersFrames(pcs[:]).Next()
		r.AddAttrs(slog.Attr{
			Key: slog.SourceKey,
			Value: slog.AnyValue(&slog.Source{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			}),
		})
	}
	return h.inner.Handle(ctx, r)
}

func (h *conditionalSourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &conditionalSourceHandler{inner: h.inner.WithAttrs(attrs), sourceLevels: h.sourceLevels}
}

func (h *conditionalSourceHandler) WithGroup(name string) slog.Handler {
	return &conditionalSourceHandler{inner: h.inner.WithGroup(name), sourceLevels: h.sourceLevels}
}

func (h *conditionalSourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}
