package typsthighlight

import (
	"fmt"
	"time"

	"github.com/alnah/go-typst-highlight/internal/assets"
	"github.com/alnah/go-typst-highlight/internal/book"
	"github.com/alnah/go-typst-highlight/internal/typst"
)

// PreprocessorName is the name mdbook knows this preprocessor by; the
// option table lives at [preprocessor.typst-highlight] in book.toml.
const PreprocessorName = "typst-highlight"

// DefaultImageDir is the directory (under the book's src root) rendered
// artifacts are written to.
const DefaultImageDir = "typst-img"

// Config holds all switches for a run. Zero-value booleans match the
// documented defaults; use DefaultConfig for the rest.
type Config struct {
	// DisableInline leaves inline code spans untouched.
	DisableInline bool
	// TypstDefault treats untagged code blocks as Typst.
	TypstDefault bool
	// Render compiles eligible blocks to images.
	Render bool

	// Format is the artifact format: svg or png.
	Format string
	// ImageDir is the artifact directory relative to the book src root.
	ImageDir string
	// Workers bounds concurrency (0 = derive from GOMAXPROCS).
	Workers int
	// Timeout bounds one compiler invocation.
	Timeout time.Duration
	// TypstPath is the compiler binary name or path.
	TypstPath string
	// Theme is the embedded theme name.
	Theme string
}

// DefaultConfig returns a Config with documented defaults.
func DefaultConfig() Config {
	return Config{
		Format:    typst.FormatSVG,
		ImageDir:  DefaultImageDir,
		Timeout:   typst.DefaultTimeout,
		TypstPath: typst.DefaultBinary,
		Theme:     assets.DefaultThemeName,
	}
}

// Validate checks that configuration values are well formed.
func (c *Config) Validate() error {
	if c.Format != typst.FormatSVG && c.Format != typst.FormatPNG {
		return fmt.Errorf("%w: %q (must be svg or png)", ErrInvalidFormat, c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.ImageDir == "" {
		return fmt.Errorf("%w: image directory cannot be empty", ErrConfigValue)
	}
	if c.TypstPath == "" {
		return fmt.Errorf("%w: typst path cannot be empty", ErrConfigValue)
	}
	return nil
}

// ConfigFromContext builds a Config from the book's preprocessor table.
// Unknown keys are ignored (mdbook owns the table and may add its own);
// known keys with the wrong type are configuration errors and abort the
// run.
func ConfigFromContext(ctx *book.Context) (Config, error) {
	cfg := DefaultConfig()
	table := ctx.PreprocessorConfig(PreprocessorName)
	if table == nil {
		return cfg, nil
	}

	var err error
	if cfg.DisableInline, err = boolOption(table, "disable_inline", cfg.DisableInline); err != nil {
		return Config{}, err
	}
	if cfg.TypstDefault, err = boolOption(table, "typst_default", cfg.TypstDefault); err != nil {
		return Config{}, err
	}
	if cfg.Render, err = boolOption(table, "render", cfg.Render); err != nil {
		return Config{}, err
	}
	if cfg.Format, err = stringOption(table, "format", cfg.Format); err != nil {
		return Config{}, err
	}
	if cfg.ImageDir, err = stringOption(table, "output-dir", cfg.ImageDir); err != nil {
		return Config{}, err
	}
	if cfg.TypstPath, err = stringOption(table, "typst-path", cfg.TypstPath); err != nil {
		return Config{}, err
	}
	if cfg.Theme, err = stringOption(table, "theme", cfg.Theme); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = intOption(table, "workers", cfg.Workers); err != nil {
		return Config{}, err
	}

	timeout, err := stringOption(table, "timeout", "")
	if err != nil {
		return Config{}, err
	}
	if timeout != "" {
		d, parseErr := time.ParseDuration(timeout)
		if parseErr != nil {
			return Config{}, fmt.Errorf("%w: timeout %q: %v", ErrConfigValue, timeout, parseErr)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func boolOption(table map[string]any, key string, fallback bool) (bool, error) {
	raw, ok := table[key]
	if !ok {
		return fallback, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrConfigValue, key, raw)
	}
	return v, nil
}

func stringOption(table map[string]any, key, fallback string) (string, error) {
	raw, ok := table[key]
	if !ok {
		return fallback, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrConfigValue, key, raw)
	}
	return v, nil
}

// intOption accepts JSON numbers (float64 after decoding) that are whole.
func intOption(table map[string]any, key string, fallback int) (int, error) {
	raw, ok := table[key]
	if !ok {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrConfigValue, key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrConfigValue, key, raw)
	}
}
