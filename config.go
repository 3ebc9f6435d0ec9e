// CLAUDE:SUMMARY Top-level YAML configuration with defaults for browser, artifacts, diff, audit and status.
package pagelens

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pagelens/internal/browser"
	"github.com/hazyhaar/pagelens/internal/visdiff"
)

// Config is the top-level service configuration.
type Config struct {
	// StartURL is navigated to when the session opens. Empty means
	// discover: probe debug ports, then common dev-server ports.
	StartURL string `yaml:"start_url"`

	// ArtifactDir holds snapshot documents, screenshots and diff images.
	ArtifactDir string `yaml:"artifact_dir"`

	Browser  browser.Config `yaml:"browser"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Diff     DiffConfig     `yaml:"diff"`
	Audit    AuditConfig    `yaml:"audit"`
	Status   StatusConfig   `yaml:"status"`
}

// TimeoutConfig bounds interaction operations. Action covers
// click/type/select/hover/getValue/getAttribute lookups; Wait is the
// separate waitFor default.
type TimeoutConfig struct {
	Action time.Duration `yaml:"action"`
	Wait   time.Duration `yaml:"wait"`
}

// DiffConfig tunes the pixel comparison.
type DiffConfig struct {
	// SignificantPercent flags a diff as visually significant when the
	// differing-pixel percentage exceeds it.
	SignificantPercent float64 `yaml:"significant_percent"`
}

// AuditConfig controls the SQLite action trail.
type AuditConfig struct {
	Disabled      bool   `yaml:"disabled"`
	Path          string `yaml:"path"` // default: <artifact_dir>/audit.db
	RetentionDays int    `yaml:"retention_days"`
}

// StatusConfig enables the optional HTTP status surface.
type StatusConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

func (c *Config) applyDefaults() {
	if c.ArtifactDir == "" {
		c.ArtifactDir = ".pagelens"
	}
	if c.Timeouts.Action <= 0 {
		c.Timeouts.Action = 3 * time.Second
	}
	if c.Timeouts.Wait <= 0 {
		c.Timeouts.Wait = 5 * time.Second
	}
	if c.Diff.SignificantPercent <= 0 {
		c.Diff.SignificantPercent = visdiff.DefaultSignificantPercent
	}
	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(c.ArtifactDir, "audit.db")
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 14
	}
}

// LoadConfig reads a YAML configuration file and applies defaults. An
// empty path yields the pure defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pagelens: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("pagelens: parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}
