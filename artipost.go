package artipost

import (
	"context"

	"github.com/loykin/artipost/internal/common"
	"github.com/loykin/artipost/internal/headers"
	"github.com/loykin/artipost/internal/history"
	"github.com/loykin/artipost/internal/uploader"
)

// Re-export commonly used types for public API

// Build carries build identity, outcome and the artifact list.
type Build = uploader.Build

// Artifact is one file to upload.
type Artifact = uploader.Artifact

// Result is the build outcome enum.
type Result = uploader.Result

// Config is one tier of upload settings (URL + raw header text).
type Config = uploader.Config

// Uploader performs the multipart POST.
type Uploader = uploader.Uploader

// UploadResult is the outcome of one invocation.
type UploadResult = uploader.UploadResult

const (
	ResultSuccess  = uploader.ResultSuccess
	ResultUnstable = uploader.ResultUnstable
	ResultFailure  = uploader.ResultFailure
	ResultNotBuilt = uploader.ResultNotBuilt
	ResultAborted  = uploader.ResultAborted
)

// ParseResult converts a build-result string into a Result.
func ParseResult(s string) (Result, error) { return uploader.ParseResult(s) }

// Upload posts build artifacts using the job-level config with global-default
// fallback and returns the outcome. Best-effort callers that must never fail
// should use Run.
func Upload(ctx context.Context, build Build, cfg, defaults Config) (*UploadResult, error) {
	u := &Uploader{Config: cfg, Defaults: defaults}
	return u.Upload(ctx, build)
}

// Run posts build artifacts best effort: failures are logged, never returned.
func Run(ctx context.Context, build Build, cfg, defaults Config) *UploadResult {
	u := &Uploader{Config: cfg, Defaults: defaults}
	return u.Run(ctx, build)
}

// ValidateURL checks a configured upload URL at configuration time.
func ValidateURL(value string) error { return headers.ValidateURL(value) }

// ValidateHeaders checks raw multiline header text at configuration time.
func ValidateHeaders(value string) error { return headers.Validate(value) }

// Logger is the slog-backed logger facade.
type Logger = common.Logger

// LogLevel represents logging verbosity levels.
type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger creates a text logger with the specified level.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// NewJSONLogger creates a JSON logger with the specified level.
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

// NewColorLogger creates a colorized terminal logger with the specified level.
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// SetDefaultLogger replaces the process-wide default logger.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

// HistoryStore persists one row per attempted upload.
type HistoryStore = history.Store

// HistoryEntry is one recorded upload attempt.
type HistoryEntry = history.Entry

// HistoryDBFileName is the default sqlite filename for upload history.
const HistoryDBFileName = history.DbFileName

// OpenHistory opens (and initializes) the sqlite history store at the given path.
func OpenHistory(path string) (*HistoryStore, error) { return history.Open(path) }
