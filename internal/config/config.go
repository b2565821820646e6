package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var ErrDatabaseNotFound = errors.New("moneywiz database not found")

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig points at the MoneyWiz sqlite file.
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	ReadOnly bool   `mapstructure:"read_only"`
}

// AnalysisConfig tunes the classifiers and trend engine.
type AnalysisConfig struct {
	DefaultCurrency      string             `mapstructure:"default_currency"`
	Timezone             string             `mapstructure:"timezone"`
	IncomeCeiling        float64            `mapstructure:"income_ceiling"`
	SmallIncomeThreshold float64            `mapstructure:"small_income_threshold"`
	ReferenceRates       map[string]float64 `mapstructure:"reference_rates"`
	PatternTTL           time.Duration      `mapstructure:"pattern_ttl"`
	PatternWindowMonths  int                `mapstructure:"pattern_window_months"`
	Workers              int                `mapstructure:"workers"`
}

// CacheConfig bounds the enrichment lookup caches.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SearchDirs lists where MoneyWiz keeps its database on macOS, relative to $HOME.
var SearchDirs = []string{
	"Library/Containers/com.moneywiz.mac/Data/Documents",
	"Library/Containers/com.moneywiz.personalfinance/Data/Documents",
	"Library/Containers/com.moneywiz.personalfinance-setapp/Data/Documents",
	"Library/Application Support/MoneyWiz",
	"Library/Application Support/SilverWiz/MoneyWiz 2",
}

// Load reads configuration from file and env. Env var overrides use prefix MONEYWIZ_.
// An explicit path wins over MONEYWIZ_CONFIG, which wins over the default location.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv("MONEYWIZ_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "moneywiz-analytics"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MONEYWIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("database.path", "MONEYWIZ_DB_PATH", "MONEYWIZ_DATABASE_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil && explicit {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("database.read_only", true)
	v.SetDefault("analysis.default_currency", "USD")
	v.SetDefault("analysis.timezone", "Local")
	v.SetDefault("analysis.income_ceiling", 100000.0)
	v.SetDefault("analysis.small_income_threshold", 1000.0)
	v.SetDefault("analysis.reference_rates", map[string]float64{"USD": 1, "EUR": 1.1, "CRC": 0.002})
	v.SetDefault("analysis.pattern_ttl", "24h")
	v.SetDefault("analysis.pattern_window_months", 12)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("cache.size", 4096)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Location resolves the analysis timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Analysis.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResolveDatabase fills Database.Path by searching home when it is unset.
func (c *Config) ResolveDatabase(home string) error {
	if c.Database.Path != "" {
		return nil
	}
	path, err := DetectDatabase(home)
	if err != nil {
		return err
	}
	c.Database.Path = path
	return nil
}

// Validate checks the database file and the numeric settings.
func (c Config) Validate() error {
	if err := validateDatabaseFile(c.Database.Path); err != nil {
		return err
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.PatternWindowMonths <= 0 {
		return fmt.Errorf("analysis.pattern_window_months must be positive, got %d", c.Analysis.PatternWindowMonths)
	}
	if c.Analysis.PatternTTL <= 0 {
		return fmt.Errorf("analysis.pattern_ttl must be positive, got %s", c.Analysis.PatternTTL)
	}
	if c.Analysis.IncomeCeiling <= 0 || c.Analysis.SmallIncomeThreshold < 0 {
		return errors.New("analysis income thresholds must be positive")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func validateDatabaseFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path configured", ErrDatabaseNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return fmt.Errorf("stat database: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("database path is not a file: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("database file is empty: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("database not readable: %w", err)
	}
	return f.Close()
}

// DetectDatabase returns the most recently modified *.sqlite file under the
// MoneyWiz directories in home.
func DetectDatabase(home string) (string, error) {
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, dir := range SearchDirs {
		matches, err := filepath.Glob(filepath.Join(home, dir, "*.sqlite"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.Size() == 0 {
				continue
			}
			found = append(found, candidate{path: m, mod: info.ModTime()})
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: searched %d locations under %s", ErrDatabaseNotFound, len(SearchDirs), home)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })
	return found[0].path, nil
}
