package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the postcheck configuration
type Config struct {
	BaseURL         string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	TokenFile       string            `json:"tokenFile,omitempty" yaml:"tokenFile,omitempty"`
	NoFixture       *bool             `json:"noFixture,omitempty" yaml:"noFixture,omitempty"`
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Output          string            `json:"output,omitempty" yaml:"output,omitempty"`
	OutputFile      string            `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
	SchemaDir       string            `json:"schemaDir,omitempty" yaml:"schemaDir,omitempty"`
	Bail            *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	WaitFor         *WaitFor          `json:"waitFor,omitempty" yaml:"waitFor,omitempty"`
	Suite           Suite             `json:"suite,omitempty" yaml:"suite,omitempty"`
}

// WaitFor delays the run until a readiness URL answers.
type WaitFor struct {
	URL      string `json:"url" yaml:"url"`
	Status   int    `json:"status,omitempty" yaml:"status,omitempty"`
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`   // milliseconds
	Interval int    `json:"interval,omitempty" yaml:"interval,omitempty"` // milliseconds
}

// Suite overrides the endpoints and test data of the scenarios. Zero values
// keep the built-in defaults.
type Suite struct {
	RegisterPath    string   `json:"registerPath,omitempty" yaml:"registerPath,omitempty"`
	TokenField      string   `json:"tokenField,omitempty" yaml:"tokenField,omitempty"`
	PostsPath       string   `json:"postsPath,omitempty" yaml:"postsPath,omitempty"`
	ProtectedPrefix string   `json:"protectedPrefix,omitempty" yaml:"protectedPrefix,omitempty"`
	Page            int      `json:"page,omitempty" yaml:"page,omitempty"`
	Limit           int      `json:"limit,omitempty" yaml:"limit,omitempty"`
	FilterIDs       []string `json:"filterIds,omitempty" yaml:"filterIds,omitempty"`
	MissingUpdateID string   `json:"missingUpdateId,omitempty" yaml:"missingUpdateId,omitempty"`
	MissingDeleteID string   `json:"missingDeleteId,omitempty" yaml:"missingDeleteId,omitempty"`
	StrictFilter    *bool    `json:"strictFilter,omitempty" yaml:"strictFilter,omitempty"`
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetNoFixture() bool {
	return getBool(c.NoFixture, false)
}

func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (s *Suite) GetStrictFilter() bool {
	return getBool(s.StrictFilter, false)
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	"postcheck.yaml",
	"postcheck.yml",
	".postcheck.yaml",
	".postcheck.yml",
	"postcheck.config.json",
	".postcheck.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if path, ok := FindConfigFile(dir); ok {
		return loadConfigFromFile(path)
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// FindConfigFile returns the first config file present in dir.
func FindConfigFile(dir string) (string, bool) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}
	}
	return "", false
}

// loadConfigFromFile loads configuration from a specific file. YAML is
// chosen by extension, everything else is read as JSON.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return config, nil
}

// FromEnv builds a partial config from POSTCHECK_* variables, already
// stripped of their prefix (see env.LoadSystemEnv). Unparseable values are
// reported rather than ignored.
func FromEnv(vars map[string]any) (*Config, error) {
	c := &Config{}
	str := func(key string) string {
		if v, ok := vars[key]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}

	c.BaseURL = str("BASE_URL")
	c.TokenFile = str("TOKEN_FILE")
	c.Proxy = str("PROXY")
	c.Output = str("OUTPUT")
	c.SchemaDir = str("SCHEMA_DIR")

	if v := str("TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("POSTCHECK_TIMEOUT: %w", err)
		}
		c.Timeout = n
	}

	bools := map[string]**bool{
		"BAIL":          &c.Bail,
		"VERBOSE":       &c.Verbose,
		"NO_COLOR":      &c.NoColor,
		"NO_FIXTURE":    &c.NoFixture,
		"VALIDATE_SSL":  &c.ValidateSSL,
		"STRICT_FILTER": &c.Suite.StrictFilter,
	}
	for key, dst := range bools {
		v := str(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("POSTCHECK_%s: %w", key, err)
		}
		*dst = BoolPtr(b)
	}

	return c, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.TokenFile != "" {
		result.TokenFile = other.TokenFile
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.SchemaDir != "" {
		result.SchemaDir = other.SchemaDir
	}
	if other.WaitFor != nil {
		result.WaitFor = other.WaitFor
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoFixture != nil {
		result.NoFixture = other.NoFixture
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	result.Suite = result.Suite.merge(other.Suite)

	return &result
}

func (s Suite) merge(other Suite) Suite {
	if other.RegisterPath != "" {
		s.RegisterPath = other.RegisterPath
	}
	if other.TokenField != "" {
		s.TokenField = other.TokenField
	}
	if other.PostsPath != "" {
		s.PostsPath = other.PostsPath
	}
	if other.ProtectedPrefix != "" {
		s.ProtectedPrefix = other.ProtectedPrefix
	}
	if other.Page > 0 {
		s.Page = other.Page
	}
	if other.Limit > 0 {
		s.Limit = other.Limit
	}
	if len(other.FilterIDs) > 0 {
		s.FilterIDs = other.FilterIDs
	}
	if other.MissingUpdateID != "" {
		s.MissingUpdateID = other.MissingUpdateID
	}
	if other.MissingDeleteID != "" {
		s.MissingDeleteID = other.MissingDeleteID
	}
	if other.StrictFilter != nil {
		s.StrictFilter = other.StrictFilter
	}
	return s
}

// SaveConfig saves the configuration to a file, as YAML or JSON depending on
// the extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
