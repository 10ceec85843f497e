package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Deployment environments recognised by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Format is the handler output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type settings struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// Option configures New.
type Option func(*settings)

// WithLevel sets the minimum record level.
func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat sets the output encoding. It panics on unknown formats.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Errorf("logger: invalid format %q, want %q or %q", f, FormatJSON, FormatText))
	}
	return func(s *settings) { s.format = f }
}

// WithOutput sets the destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// WithContextExtractors registers functions that inject attributes from the
// record's context. Nil extractors are ignored.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name when it is set.
func WithContextValue(name string, key any) Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		if name == "" || key == nil {
			return slog.Attr{}, false
		}
		if v := ctx.Value(key); v != nil {
			return slog.Any(name, v), true
		}
		return slog.Attr{}, false
	})
}

var profiles = map[string]struct {
	name   string
	level  slog.Level
	format Format
}{
	EnvDevelopment: {EnvDevelopment, slog.LevelDebug, FormatText},
	EnvStaging:     {EnvStaging, slog.LevelInfo, FormatJSON},
	"stage":        {EnvStaging, slog.LevelInfo, FormatJSON},
	EnvProduction:  {EnvProduction, slog.LevelInfo, FormatJSON},
	"prod":         {EnvProduction, slog.LevelInfo, FormatJSON},
}

// WithEnvironment applies the level and format of env and tags records with
// the service and env names. Unknown environments get the development profile.
func WithEnvironment(env, service string) Option {
	p, ok := profiles[env]
	if !ok {
		p = profiles[EnvDevelopment]
	}
	return func(s *settings) {
		s.level = p.level
		s.format = p.format
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
		s.attrs = append(s.attrs, slog.String("env", p.name))
	}
}

// SetAsDefault installs l as the slog default logger.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New creates a slog.Logger whose handler runs the registered context
// extractors on every record. Defaults are JSON at info level on stdout.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo, format: FormatJSON, output: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}

	handlerOpts := &slog.HandlerOptions{Level: s.level}
	var handler slog.Handler = slog.NewJSONHandler(s.output, handlerOpts)
	if s.format == FormatText {
		handler = slog.NewTextHandler(s.output, handlerOpts)
	}
	if len(s.attrs) > 0 {
		handler = handler.WithAttrs(s.attrs)
	}
	return slog.New(NewLogHandlerDecorator(handler, s.extractors...))
}

// Config is the environment driven logger configuration of a service.
// Format overrides the encoding picked by Env when set.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"storefront"`
	Debug   bool   `env:"LOG_DEBUG" envDefault:"false"`
	Format  string `env:"LOG_FORMAT"`
}

// FromConfig builds the service logger from cfg. Options are applied after
// the config, so callers can add extractors or redirect output. It panics on
// a Format other than "json" or "text".
func FromConfig(cfg Config, opts ...Option) *slog.Logger {
	all := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	if cfg.Format != "" {
		all = append(all, WithFormat(Format(cfg.Format)))
	}
	if cfg.Debug {
		all = append(all, WithLevel(slog.LevelDebug))
	}
	return New(append(all, opts...)...)
}
