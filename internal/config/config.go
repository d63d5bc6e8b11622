package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
)

// Config holds workspace settings read from nlvreport.yml.
type Config struct {
	DefaultYear   int            `yaml:"default_year"`
	CatalogPath   string         `yaml:"catalog_path,omitempty"`
	Notifications bool           `yaml:"notifications"`
	Overview      OverviewConfig `yaml:"overview"`
	Server        ServerConfig   `yaml:"server"`
}

// OverviewConfig picks the KPIs shown on the overview tab.
type OverviewConfig struct {
	Headlines []string `yaml:"headlines"`
	Trends    []string `yaml:"trends"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Overview: OverviewConfig{
			Headlines: []string{"gen_csat", "gen_revenue", "sales_rfi", "mkt_coffee"},
			Trends:    []string{"gen_customers", "sales_geo", "comm_demos", "help_tickets"},
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Load reads path and merges it over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	merged := Merge(loaded, Default())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge fills unset fields of loaded from defaults.
func Merge(loaded, defaults *Config) *Config {
	result := *loaded
	if len(result.Overview.Headlines) == 0 {
		result.Overview.Headlines = defaults.Overview.Headlines
	}
	if len(result.Overview.Trends) == 0 {
		result.Overview.Trends = defaults.Overview.Trends
	}
	if result.Server.Addr == "" {
		result.Server.Addr = defaults.Server.Addr
	}
	return &result
}

// Validate checks values that do not depend on the catalog.
func Validate(cfg *Config) error {
	if cfg.DefaultYear != 0 && (cfg.DefaultYear < 1970 || cfg.DefaultYear > 9999) {
		return fmt.Errorf("%w: default_year must be a four-digit year, got %d", ErrInvalidConfig, cfg.DefaultYear)
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("%w: server.addr %q: %v", ErrInvalidConfig, cfg.Server.Addr, err)
	}
	return nil
}

// ValidateOverview checks that every overview KPI exists in cat.
func ValidateOverview(cfg *Config, cat *catalog.Catalog) error {
	for _, group := range [][]string{cfg.Overview.Headlines, cfg.Overview.Trends} {
		for _, id := range group {
			if _, ok := cat.Lookup(id); !ok {
				return fmt.Errorf("%w: overview references unknown KPI %q", ErrInvalidConfig, id)
			}
		}
	}
	return nil
}

// Catalog loads the catalog override named by cfg, or the built-in one.
func (cfg *Config) Catalog(resolve func(string) (string, error)) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	path := cfg.CatalogPath
	if resolve != nil {
		resolved, err := resolve(path)
		if err != nil {
			return nil, fmt.Errorf("resolve catalog_path: %w", err)
		}
		path = resolved
	}
	return catalog.LoadFile(path)
}

// Marshal renders cfg with a header, for writing a fresh workspace file.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	header := "# NLVreport workspace configuration\n# default_year: 0 uses the current calendar year\n\n"
	return append([]byte(header), data...), nil
}
