// Package config loads the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/bom-tree-builder/internal/logging"
)

// Source describes one BOM source to load.
type Source struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path" validate:"required"`
	Format    string `yaml:"format" validate:"omitempty,oneof=auto text csv xlsx sqlite"`
	Sheet     string `yaml:"sheet"`
	Table     string `yaml:"table" validate:"omitempty,sqlident"`
	Delimiter string `yaml:"delimiter"`
	Priority  int    `yaml:"priority"`
}

// Columns lists extra header aliases for the key columns. They are matched
// before the built-in aliases.
type Columns struct {
	Product   []string `yaml:"product"`
	Component []string `yaml:"component"`
	Quantity  []string `yaml:"quantity"`
}

// Report controls what the renderers show.
type Report struct {
	Attributes []string `yaml:"attributes"`
	DrawingURL string   `yaml:"drawing_url" validate:"omitempty,contains={part}"`
}

// Output selects the report destination.
type Output struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format" validate:"omitempty,oneof=xlsx json csv tree cyclonedx"`
}

// S3 configures access to s3:// sources. Credentials come from the
// default AWS chain.
type S3 struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Config is the full run configuration.
type Config struct {
	Mode          string         `yaml:"mode" validate:"omitempty,oneof=all first all_sources first_match all-sources first-match"`
	BuildQuantity float64        `yaml:"build_quantity" validate:"gte=0"`
	Workers       int            `yaml:"workers" validate:"gte=0,lte=256"`
	Timeout       time.Duration  `yaml:"timeout" validate:"gte=0"`
	Sources       []Source       `yaml:"sources" validate:"dive"`
	SearchIn      []string       `yaml:"search_in"`
	S3            S3             `yaml:"s3"`
	Columns       Columns        `yaml:"columns"`
	Report        Report         `yaml:"report"`
	Output        Output         `yaml:"output"`
	Logging       logging.Config `yaml:"logging"`
	MetricsFile   string         `yaml:"metrics_file"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return IsSQLIdent(fl.Field().String())
	})
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Mode:          "all",
		BuildQuantity: 1,
		Workers:       4,
		Output:        Output{Format: "xlsx"},
		Logging:       logging.Config{Level: "info", Format: "console"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	names := map[string]bool{}
	for i, s := range c.Sources {
		name := s.DisplayName()
		if names[name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, name)
		}
		names[name] = true
		if s.Format == "sqlite" && s.Table == "" {
			return fmt.Errorf("sources[%d]: sqlite source %q needs a table", i, name)
		}
	}
	for _, n := range c.SearchIn {
		if !names[n] && len(c.Sources) > 0 {
			return fmt.Errorf("search_in: unknown source %q", n)
		}
	}
	return nil
}

// SourcesByPriority returns the sources sorted by Priority, keeping file
// order for ties.
func (c *Config) SourcesByPriority() []Source {
	out := make([]Source, len(c.Sources))
	copy(out, c.Sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// DisplayName returns Name, or the base name of Path when Name is empty.
func (s Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	p := s.Path
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// IsSQLIdent reports whether s is a plain SQL identifier that may be
// interpolated into a query.
func IsSQLIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
