// Package config holds harvester configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

// Config holds harvester configuration.
type Config struct {
	BaseURL string

	// Years and Circuits select the index pages to enumerate. Invalid
	// combinations are not validated here; the site simply returns an empty
	// listing for them.
	Years    []int
	Circuits []models.Circuit

	// Excluded lists result pages to skip after stage expansion, for stages
	// whose result table is known to be absent (team time trials without a
	// published table cannot be told apart from well-formed stages before
	// fetching).
	Excluded map[models.StageTarget]struct{}

	// MinRequestInterval is the courtesy delay between any two requests to
	// the host, enforced globally across all fetches.
	MinRequestInterval time.Duration

	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	CacheSize       int

	OutputFile   string
	OutputFormat string // csv, json, or dual
	UserAgent    string
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for the statistics site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://www.procyclingstats.com",
		Years:              []int{time.Now().Year() - 1},
		Circuits:           []models.Circuit{models.CircuitWorldTour},
		Excluded:           map[models.StageTarget]struct{}{},
		MinRequestInterval: 2 * time.Second,
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		CacheSize:          256,
		OutputFile:         "output/results.csv",
		OutputFormat:       "csv",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if len(c.Years) == 0 {
		return fmt.Errorf("years cannot be empty")
	}
	for _, year := range c.Years {
		if year < 1900 {
			return fmt.Errorf("implausible year %d", year)
		}
	}
	if len(c.Circuits) == 0 {
		return fmt.Errorf("circuits cannot be empty")
	}
	if c.MinRequestInterval < 0 {
		return fmt.Errorf("minimum request interval cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Exclude adds a result page to the deny-list.
func (c *Config) Exclude(target models.StageTarget) {
	if c.Excluded == nil {
		c.Excluded = map[models.StageTarget]struct{}{}
	}
	c.Excluded[target] = struct{}{}
}

// IsExcluded reports whether a target is on the deny-list.
func (c *Config) IsExcluded(target models.StageTarget) bool {
	_, ok := c.Excluded[target]
	return ok
}

// EnvInt reads an integer environment variable. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable and whether it was set.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
