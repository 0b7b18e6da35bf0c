package uploader

import (
	"strings"
)

// Config is one tier of upload settings. Two instances exist per invocation:
// the job-level override and the global default; Resolve merges them.
type Config struct {
	// URL is the upload endpoint. Empty means "fall back", and if both tiers
	// are empty the upload is a no-op.
	URL string `mapstructure:"url" yaml:"url"`
	// Headers is raw multiline "Name: Value" text as entered by the user.
	Headers string `mapstructure:"headers" yaml:"headers"`
	// ResultPath is an optional gjson path evaluated against the response
	// body; the extracted value is logged and recorded, nothing more.
	ResultPath string `mapstructure:"result_path" yaml:"result_path"`
}

// Resolve merges the job-level config with global defaults, field-wise: the
// job-level value wins whenever it is non-empty.
func (c Config) Resolve(defaults Config) Config {
	out := c
	if strings.TrimSpace(out.URL) == "" {
		out.URL = defaults.URL
	}
	if strings.TrimSpace(out.Headers) == "" {
		out.Headers = defaults.Headers
	}
	if strings.TrimSpace(out.ResultPath) == "" {
		out.ResultPath = defaults.ResultPath
	}
	return out
}
