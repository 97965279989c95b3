package cmd

// Options holds the shared command-line options for the repopin CLI.
type Options struct {
	Format    string
	Verbosity int
	LogFile   string // Log destination while the TUI owns the terminal
	Once      bool   // Run a single search and print the results
	Pin       int    // 1-based result to pin after a single search
	TUI       *bool  // nil = auto-detect, true = force TUI, false = disable TUI
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (table, json, yaml).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithLogFile sends logs to path instead of stderr.
func WithLogFile(path string) Option {
	return func(o *Options) {
		o.LogFile = path
	}
}

// WithOnce forces a single non-interactive search.
func WithOnce(once bool) Option {
	return func(o *Options) {
		o.Once = once
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}
