package uploader

import (
	"fmt"
	"time"

	"github.com/loykin/artipost/internal/util"
)

// Result is the outcome of the build whose artifacts are being uploaded.
// Ordering matters: anything at or beyond ResultFailure suppresses the upload.
type Result int

const (
	ResultSuccess Result = iota
	ResultUnstable
	ResultFailure
	ResultNotBuilt
	ResultAborted
)

// String returns the string representation of the build result
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultUnstable:
		return "unstable"
	case ResultFailure:
		return "failure"
	case ResultNotBuilt:
		return "not_built"
	case ResultAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// FailureOrWorse reports whether the build failed or worse (not built, aborted).
func (r Result) FailureOrWorse() bool {
	return r >= ResultFailure
}

// ParseResult converts a build-result string into a Result.
func ParseResult(s string) (Result, error) {
	switch util.TrimAndLower(s) {
	case "success", "":
		return ResultSuccess, nil
	case "unstable":
		return ResultUnstable, nil
	case "failure", "failed":
		return ResultFailure, nil
	case "not_built", "not-built", "notbuilt":
		return ResultNotBuilt, nil
	case "aborted":
		return ResultAborted, nil
	default:
		return ResultSuccess, fmt.Errorf("invalid build result: %s (valid: success, unstable, failure, not_built, aborted)", s)
	}
}

// Artifact is one build-produced file eligible for upload. The file itself is
// owned by the surrounding build; this package only reads it.
type Artifact struct {
	FileName string
	Path     string
}

// Build carries the context of the finished build: identity, outcome and the
// ordered artifact list.
type Build struct {
	JobName   string
	Number    int
	Timestamp time.Time
	Result    Result
	Artifacts []Artifact
}
