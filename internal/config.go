package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Catalog source kinds.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourceSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Render   RenderConfig      `yaml:"render"`
	Sessions SessionsConfig    `yaml:"sessions"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	return c.Sessions.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CatalogConfig says where the catalog resource lives.
//
// Source selects the provider:
//   - "embedded" (default): the catalog compiled into the binary.
//   - "file": the JSON file at Path.
//   - "http": the JSON document at URL.
//   - "sqlite": the records table of the database at Path.
//
// Timeout bounds one fetch. Watch (file source only) reports on-disk
// changes to the file; the loaded catalog itself is never refreshed.
type CatalogConfig struct {
	Source  string        `yaml:"source"`
	Path    string        `yaml:"path"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Watch   bool          `yaml:"watch"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	if c.Source == "" {
		c.Source = SourceEmbedded
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(SourceEmbedded, SourceFile, SourceHTTP, SourceSQLite)),
		validation.Field(&c.Path, validation.When(c.Source == SourceFile || c.Source == SourceSQLite, validation.Required)),
		validation.Field(&c.URL, validation.When(c.Source == SourceHTTP, validation.Required)),
	); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errors.New("catalog: timeout must not be negative")
	}
	if c.Watch && c.Source != SourceFile {
		return fmt.Errorf("catalog: watch requires source %q", SourceFile)
	}
	return nil
}

// RenderConfig holds page rendering options.
type RenderConfig struct {
	Title     string `yaml:"title"`
	LinkLabel string `yaml:"link_label"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.LinkLabel, validation.Required),
	)
}

// SessionsConfig bounds the live search sessions.
type SessionsConfig struct {
	Max         int           `yaml:"max"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Validate validates the sessions configuration.
func (c *SessionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Max, validation.Min(0)),
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Catalog: CatalogConfig{
			Source:  SourceEmbedded,
			Timeout: 10 * time.Second,
		},
		Render: RenderConfig{
			Title:     "Programming languages",
			LinkLabel: "Learn more",
		},
		Sessions: SessionsConfig{
			Max:         1000,
			IdleTimeout: 10 * time.Minute,
		},
	}
}
