package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// EnvPrefix prefixes every environment override, e.g. STOCKCORR_STOCK_DIR.
const EnvPrefix = "STOCKCORR"

// Global configuration structure.
type Global struct {
	IndustryFile string `mapstructure:"industry_file" yaml:"industry_file"`
	StockDir     string `mapstructure:"stock_dir" yaml:"stock_dir"`
	KeyColumn    string `mapstructure:"key_column" yaml:"key_column"`
	StockColumn  string `mapstructure:"stock_column" yaml:"stock_column"`
	Granularity  string `mapstructure:"granularity" yaml:"granularity"`
	// Number parsing locale; empty auto-detects per value.
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`
	OutputFormat  string  `mapstructure:"output_format" yaml:"output_format"`
	ScanTop       int     `mapstructure:"scan_top" yaml:"scan_top"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"industry_file", "stock_dir", "key_column", "stock_column", "granularity",
	"decimal_separator", "thousands_separator",
	"chart_width_in", "chart_height_in", "output_format", "scan_top",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".stockcorr"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.stockcorr/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("industry_file", "")
	v.SetDefault("stock_dir", "Stock Data")
	v.SetDefault("key_column", "Date")
	v.SetDefault("stock_column", "Total Revenue/Income")
	v.SetDefault("granularity", string(series.GranularityDay))
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("chart_width_in", 10.0)
	v.SetDefault("chart_height_in", 6.0)
	v.SetDefault("output_format", "markdown")
	v.SetDefault("scan_top", 10)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.IndustryFile = ExpandHome(c.IndustryFile)
	c.StockDir = ExpandHome(c.StockDir)
	return &c, nil
}

// Get returns the string form of a configuration value.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "industry_file":
		return c.IndustryFile, nil
	case "stock_dir":
		return c.StockDir, nil
	case "key_column":
		return c.KeyColumn, nil
	case "stock_column":
		return c.StockColumn, nil
	case "granularity":
		return c.Granularity, nil
	case "decimal_separator":
		return c.DecimalSeparator, nil
	case "thousands_separator":
		return c.ThousandsSeparator, nil
	case "chart_width_in":
		return strconv.FormatFloat(c.ChartWidthIn, 'g', -1, 64), nil
	case "chart_height_in":
		return strconv.FormatFloat(c.ChartHeightIn, 'g', -1, 64), nil
	case "output_format":
		return c.OutputFormat, nil
	case "scan_top":
		return strconv.Itoa(c.ScanTop), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Set validates and assigns one configuration value.
func (c *Global) Set(key, val string) error {
	switch key {
	case "industry_file":
		c.IndustryFile = val
	case "stock_dir":
		c.StockDir = val
	case "key_column":
		if strings.TrimSpace(val) == "" {
			return errors.New("key_column cannot be empty")
		}
		c.KeyColumn = val
	case "stock_column":
		c.StockColumn = val
	case "granularity":
		g, err := series.ParseGranularity(val)
		if err != nil {
			return err
		}
		c.Granularity = string(g)
	case "decimal_separator", "thousands_separator":
		if _, err := ParseSeparator(val); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if key == "decimal_separator" {
			c.DecimalSeparator = val
		} else {
			c.ThousandsSeparator = val
		}
	case "chart_width_in", "chart_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid positive float for %s: %v", key, val)
		}
		if key == "chart_width_in" {
			c.ChartWidthIn = f
		} else {
			c.ChartHeightIn = f
		}
	case "output_format":
		switch strings.ToLower(val) {
		case "markdown", "md":
			c.OutputFormat = "markdown"
		case "json":
			c.OutputFormat = "json"
		default:
			return fmt.Errorf("invalid output_format: %s (use markdown or json)", val)
		}
	case "scan_top":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for scan_top: %v", val)
		}
		c.ScanTop = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// ParseSeparator turns a configured separator into a rune. Empty means
// auto-detect (0); "space" and "apostrophe" are accepted as names.
func ParseSeparator(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "space":
		return ' ', nil
	case "apostrophe":
		return '\'', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	return r[0], nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
