package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	trigger   chan struct{}
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream (stdout by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithRebuildTrigger makes Run rebuild on every value received on ch, in
// addition to SIGHUP.
func WithRebuildTrigger(ch chan struct{}) Option {
	return func(a *application) {
		a.trigger = ch
	}
}
