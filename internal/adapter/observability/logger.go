package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/fairyhunter13/interview-feedback/internal/config"
)

// SetupLogger configures a JSON slog logger tagged with service, env and the
// binary's component name (server or worker).
func SetupLogger(cfg config.Config, component string) *slog.Logger {
	return newLogger(os.Stdout, cfg, component)
}

func newLogger(w io.Writer, cfg config.Config, component string) *slog.Logger {
	opts := &slog.HandlerOptions{}
	// In dev, show debug level with source; in prod, default to info
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
		slog.String("component", component),
	)
}
