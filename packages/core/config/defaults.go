package config

import "github.com/abdul-hamid-achik/postcheck/packages/fixture"

// DefaultBaseURL is the API the scenarios were written against.
const DefaultBaseURL = "https://juice-shop-sanitarskyi.herokuapp.com"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         30000, // 30 seconds
		TokenFile:       fixture.DefaultPath,
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
		Output:          "console",
	}
}
