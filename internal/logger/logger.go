package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NewLogger initializes a new slog logger based on the provided configuration.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	var handler slog.Handler

	if output == nil {
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		case "file":
			file, err := os.OpenFile("app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				output = os.Stdout
			} else {
				output = file
			}
		default:
			output = os.Stdout
		}
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = new(slog.Level)
	}

	switch cfg.Format {
	case "actions":
		handler = &actionsHandler{
			Handler: slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}),
			out:     output,
			mu:      &sync.Mutex{},
		}
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level: level,
		})
	case "text":
		fallthrough
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// actionsHandler additionally emits GitHub Actions workflow commands for
// warnings and errors so they show up as run annotations.
type actionsHandler struct {
	slog.Handler
	out io.Writer
	mu  *sync.Mutex
	// boundErr is an "error" attribute bound through WithAttrs.
	boundErr string
}

func (h *actionsHandler) Handle(ctx context.Context, r slog.Record) error {
	var command string
	switch {
	case r.Level >= slog.LevelError:
		command = "error"
	case r.Level >= slog.LevelWarn:
		command = "warning"
	}
	if command != "" {
		errText := h.boundErr
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "error" {
				errText = a.Value.String()
				return false
			}
			return true
		})
		msg := r.Message
		if errText != "" {
			msg += ": " + errText
		}
		h.mu.Lock()
		_, err := fmt.Fprintf(h.out, "::%s::%s\n", command, escapeWorkflowData(msg))
		h.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *actionsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	boundErr := h.boundErr
	for _, a := range attrs {
		if a.Key == "error" {
			boundErr = a.Value.String()
		}
	}
	return &actionsHandler{Handler: h.Handler.WithAttrs(attrs), out: h.out, mu: h.mu, boundErr: boundErr}
}

func (h *actionsHandler) WithGroup(name string) slog.Handler {
	return &actionsHandler{Handler: h.Handler.WithGroup(name), out: h.out, mu: h.mu, boundErr: h.boundErr}
}

// escapeWorkflowData applies the escaping GitHub requires for command payloads.
func escapeWorkflowData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}
