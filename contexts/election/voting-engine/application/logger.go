package application

import "log/slog"

// ModuleName is the "module" attribute on every log line from this context.
const ModuleName = "election/voting-engine"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
