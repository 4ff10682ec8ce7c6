package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/grove/internal/build"
	"github.com/starford/grove/internal/models"
)

// StyleSourceDir is the subdirectory of the static dir holding style sources.
const StyleSourceDir = "sass"

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Site  SiteConfig        `yaml:"site"`
	Index IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Site.Validate()
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
	Port       int  `yaml:"port"`
	LiveReload bool `yaml:"live_reload"`
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

// SiteConfig locates the notes, templates, styles and output of the site.
type SiteConfig struct {
	BaseDir            string   `yaml:"base_dir"`
	TemplatesDir       string   `yaml:"templates_dir"`
	StaticDir          string   `yaml:"static_dir"`
	OutputDir          string   `yaml:"output_dir"`
	StartPage          string   `yaml:"start_page"`
	MarkdownExtensions []string `yaml:"markdown_extensions"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseDir, validation.Required),
		validation.Field(&c.TemplatesDir, validation.Required),
		validation.Field(&c.StaticDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.StartPage, validation.Required),
	); err != nil {
		return err
	}
	// Output inside a watched root would retrigger a rebuild on every write.
	for _, watched := range c.WatchRoots() {
		if within(c.OutputDir, watched) {
			return fmt.Errorf("site: output_dir %q is inside watched dir %q", c.OutputDir, watched)
		}
	}
	if strings.ContainsAny(c.StartPage, "[]|") {
		return errors.New("site: start_page must not contain '[', ']' or '|'")
	}
	return nil
}

// StyleDir returns the style source directory.
func (c *SiteConfig) StyleDir() string {
	return filepath.Join(c.StaticDir, StyleSourceDir)
}

// WatchRoots returns the directories whose changes trigger a rebuild.
func (c *SiteConfig) WatchRoots() []string {
	return []string{c.TemplatesDir, c.StyleDir()}
}

// Paths converts the configuration into build paths.
func (c *SiteConfig) Paths() build.Paths {
	return build.Paths{
		Notes:     c.BaseDir,
		Templates: c.TemplatesDir,
		Styles:    c.StyleDir(),
		Output:    c.OutputDir,
	}
}

// Entry returns the entry note name.
func (c *SiteConfig) Entry() models.NoteName {
	return models.NoteName(c.StartPage)
}

// IndexConfig holds the optional graph snapshot database.
// An empty Path disables the snapshot.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a snapshot database is configured.
func (c *IndexConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
		},
		Site: SiteConfig{
			BaseDir:      "./notes",
			TemplatesDir: "./templates",
			StaticDir:    "./static",
			OutputDir:    "./public",
			StartPage:    "Home",
		},
	}
}

func within(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
