package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that forwards into the slog logger with a
// component attribute. Used where libraries expect *log.Logger (http.Server.ErrorLog).
func New(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}
