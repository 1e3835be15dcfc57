package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always logs JSON;
// elsewhere LOG_FORMAT picks the handler, defaulting to text for
// readable local output.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.IsProduction() || cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
