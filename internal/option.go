package internal

import (
	"log/slog"

	"github.com/starford/orgstamp/internal/stamper"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	clock  stamper.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithClock sets the clock that supplies "today".
func WithClock(c stamper.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{clock: stamper.RealClock{}}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
