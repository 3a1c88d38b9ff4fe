// Package logging builds the structured logger every service writes with.
package logging

import (
	"io"
	"log/slog"

	"github.com/CameronXie/order-management/internal/version"
)

// New returns a JSON logger tagged with the service name and build version.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).With(
		slog.String("service", service),
		slog.String("version", version.Version),
	)
}
