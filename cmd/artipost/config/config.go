package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/loykin/artipost"
	"github.com/loykin/artipost/internal/httpc"
	"github.com/loykin/artipost/internal/uploader"
	"github.com/loykin/artipost/internal/util"
)

type ArtifactConfig struct {
	FileName string `mapstructure:"file_name" yaml:"file_name"`
	Path     string `mapstructure:"path" yaml:"path"`
}

type BuildConfig struct {
	JobName string `mapstructure:"job_name" yaml:"job_name"`
	Number  int    `mapstructure:"number" yaml:"number"`
	// Result is the build outcome: success, unstable, failure, not_built, aborted
	Result string `mapstructure:"result" yaml:"result"`
	// TimestampMs is milliseconds since epoch; zero means "now"
	TimestampMs int64            `mapstructure:"timestamp_ms" yaml:"timestamp_ms"`
	Artifacts   []ArtifactConfig `mapstructure:"artifacts" yaml:"artifacts"`
	// ArtifactDir adds every regular file in the directory as an artifact
	ArtifactDir string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
}

type ClientConfig struct {
	// Explicit options only
	Insecure       bool          `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion  string        `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive header masking
}

type HistoryConfig struct {
	Disabled bool   `mapstructure:"disabled" yaml:"disabled"`
	Path     string `mapstructure:"path" yaml:"path"`
}

type ConfigDoc struct {
	// Upload is the job-level config; Defaults the global fallback tier.
	Upload   uploader.Config `mapstructure:"upload" yaml:"upload"`
	Defaults uploader.Config `mapstructure:"defaults" yaml:"defaults"`
	Build    BuildConfig     `mapstructure:"build" yaml:"build"`
	Client   ClientConfig    `mapstructure:"client" yaml:"client"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	History  HistoryConfig   `mapstructure:"history" yaml:"history"`
}

// Load reads a YAML config file into the document. Durations like
// "30s" are accepted for client timeouts.
func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var raw map[string]interface{}
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return c.FromMap(raw)
}

// FromMap decodes a generic map into the document with duration support.
func (c *ConfigDoc) FromMap(raw map[string]interface{}) error {
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     c,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return md.Decode(raw)
}

func (c *ConfigDoc) parseLogLevel() (artipost.LogLevel, error) {
	level := util.TrimAndLower(c.Logging.Level)
	switch level {
	case "error":
		return artipost.LogLevelError, nil
	case "warn", "warning":
		return artipost.LogLevelWarn, nil
	case "info", "":
		return artipost.LogLevelInfo, nil
	case "debug":
		return artipost.LogLevelDebug, nil
	default:
		return artipost.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *artipost.Logger
	switch format := util.TrimAndLower(c.Logging.Format); format {
	case "json":
		logger = artipost.NewJSONLogger(level)
	case "color", "colour":
		logger = artipost.NewColorLogger(level)
	case "text", "":
		logger = artipost.NewLogger(level)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}
	artipost.SetDefaultLogger(logger)
	return nil
}

// MaskingEnabled reports whether sensitive header masking is on (default true).
func (c *ConfigDoc) MaskingEnabled() bool {
	if c.Logging.MaskSensitive != nil {
		return *c.Logging.MaskSensitive
	}
	return true
}

// TLSConfig builds the client TLS settings, or nil when defaults apply.
func (c *ConfigDoc) TLSConfig() *tls.Config {
	if !c.Client.Insecure && util.TrimAndLower(c.Client.MinTLSVersion) == "" {
		return nil
	}
	cfg := &tls.Config{MinVersion: httpc.ParseTLSVersion(c.Client.MinTLSVersion)}
	if c.Client.Insecure {
		cfg.InsecureSkipVerify = true // #nosec G402 -- explicit opt-in via client.insecure
	}
	return cfg
}

// ToBuild assembles the uploader Build from config plus any extra artifact
// paths (typically CLI args; file name is the base name).
func (c *ConfigDoc) ToBuild(extraPaths []string) (uploader.Build, error) {
	result, err := uploader.ParseResult(c.Build.Result)
	if err != nil {
		return uploader.Build{}, err
	}

	ts := time.Now()
	if c.Build.TimestampMs > 0 {
		ts = time.UnixMilli(c.Build.TimestampMs)
	}

	b := uploader.Build{
		JobName:   c.Build.JobName,
		Number:    c.Build.Number,
		Timestamp: ts,
		Result:    result,
	}

	for _, a := range c.Build.Artifacts {
		name := util.TrimWithDefault(a.FileName, filepath.Base(a.Path))
		p, ok := util.TrimEmptyCheck(a.Path)
		if !ok {
			return uploader.Build{}, fmt.Errorf("artifact %q: missing path", name)
		}
		b.Artifacts = append(b.Artifacts, uploader.Artifact{FileName: name, Path: p})
	}

	if dir, ok := util.TrimEmptyCheck(c.Build.ArtifactDir); ok {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return uploader.Build{}, fmt.Errorf("artifact_dir: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			b.Artifacts = append(b.Artifacts, uploader.Artifact{FileName: n, Path: filepath.Join(dir, n)})
		}
	}

	for _, p := range extraPaths {
		if pp, ok := util.TrimEmptyCheck(p); ok {
			b.Artifacts = append(b.Artifacts, uploader.Artifact{FileName: filepath.Base(pp), Path: pp})
		}
	}
	return b, nil
}
