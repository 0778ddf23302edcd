package geno

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Method      string `toml:"method"`       // ldknn, knn or mode
	InputFormat string `toml:"input_format"` // raw, array or bin
	NumSnps     int    `toml:"num_snps"`     // row width of bin input

	Neighbours int `toml:"neighbours"`
	Snps       int `toml:"snps"`
	LdNum      int `toml:"ld_num"`

	Correlation      string  `toml:"correlation"` // pearson, hamming or em
	LazyIndex        bool    `toml:"lazy_index"`  // compute LD rankings per site on demand
	DistanceConstant float64 `toml:"distance_constant"`
	Passes           int     `toml:"passes"`

	Optimize  bool `toml:"optimize"`
	StartMaxK int  `toml:"start_max_k"`
	StartMaxL int  `toml:"start_max_l"`
	AbsMaxK   int  `toml:"abs_max_k"`
	AbsMaxL   int  `toml:"abs_max_l"`

	MaskNum  int    `toml:"mask_num"`
	MaskSeed uint64 `toml:"mask_seed"`

	LocalNumThreads int    `toml:"num_threads"`
	MemoryLimit     uint64 `toml:"memory_limit"`
	CacheSize       int    `toml:"cache_size"`

	Verbose bool `toml:"verbose"`
}

// DefaultConfig holds the values used when neither a config file nor a flag
// sets them.
func DefaultConfig() *Config {
	return &Config{
		Method:           "ldknn",
		InputFormat:      "raw",
		Neighbours:       5,
		Snps:             20,
		Correlation:      "pearson",
		DistanceConstant: 1.0,
		Passes:           1,
		StartMaxK:        20,
		StartMaxL:        20,
		CacheSize:        1024,
	}
}

// LoadConfig decodes a TOML file on top of DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(filename, config); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Method {
	case "ldknn", "knn", "mode":
	default:
		return fmt.Errorf("unknown method %q", c.Method)
	}
	switch c.InputFormat {
	case "raw", "array", "bin":
	default:
		return fmt.Errorf("unknown input format %q", c.InputFormat)
	}
	if c.InputFormat == "bin" && c.NumSnps <= 0 {
		return fmt.Errorf("num_snps must be set for bin input")
	}
	if c.Neighbours <= 0 {
		return fmt.Errorf("number of neighbours must be a positive integer")
	}
	if c.Snps <= 0 {
		return fmt.Errorf("number of snps must be a positive integer")
	}
	if c.LdNum < 0 || c.MaskNum < 0 {
		return fmt.Errorf("ld_num and mask_num must not be negative")
	}
	if c.Passes < 1 || c.Passes > 2 {
		return fmt.Errorf("passes must be 1 or 2")
	}
	if c.StartMaxK <= 0 || c.StartMaxL <= 0 {
		return fmt.Errorf("start_max_k and start_max_l must be positive")
	}
	return nil
}
