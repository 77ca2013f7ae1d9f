// config.go --  This file is part of goHF project.
// Mirzaeva Irina, 2023
//
//	goHF is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package config loads gohf run settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/mirzaevaiv/gohf/internal/gaussian"
	"github.com/mirzaevaiv/gohf/internal/scf"
)

// EnvPrefix prefixes every environment override, e.g. GOHF_LOG_LEVEL or
// GOHF_SCF_MAXITER.
const EnvPrefix = "GOHF"

// Config validation errors
var (
	ErrInvalidLogFormat     = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel      = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidPopulateOrder = errors.New("populate_order must not be negative")
	ErrInvalidStorePath     = errors.New("store_path must end in .arrow or .parquet")
	ErrInvalidKind          = errors.New("kinds must be overlap, kinetic, potential or eri")
)

// Config holds the settings shared by every gohf command.
type Config struct {
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" envconfig:"LOG_FORMAT"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`

	// StorePath is the derivative container read by grad and written by
	// populate. The extension selects Arrow IPC or Parquet.
	StorePath     string   `yaml:"store_path" envconfig:"STORE_PATH"`
	PopulateOrder int      `yaml:"populate_order" envconfig:"POPULATE_ORDER"`
	Kinds         []string `yaml:"kinds" envconfig:"KINDS"`

	Plot bool `yaml:"plot" envconfig:"PLOT"`

	SCF scf.Options `yaml:"scf"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "console",
		StorePath:     "derivatives.arrow",
		PopulateOrder: 1,
		Kinds:         slices.Clone(gaussian.Kinds),
		SCF:           scf.DefaultOptions(),
	}
}

// Load reads a YAML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads envFile into the environment when it exists, without
// replacing variables already set, then overrides cfg from GOHF_*
// variables. An empty envFile means ".env".
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: %s: %w", envFile, err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Validate checks cfg and returns the first problem found.
func Validate(cfg *Config) error {
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if cfg.PopulateOrder < 0 {
		return ErrInvalidPopulateOrder
	}
	if cfg.StorePath != "" && !strings.HasSuffix(cfg.StorePath, ".arrow") && !strings.HasSuffix(cfg.StorePath, ".parquet") {
		return ErrInvalidStorePath
	}
	for _, k := range cfg.Kinds {
		if !slices.Contains(gaussian.Kinds, k) {
			return fmt.Errorf("%w: %q", ErrInvalidKind, k)
		}
	}
	return cfg.SCF.Validate()
}
