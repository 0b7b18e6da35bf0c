// Package headers parses and validates the raw multiline "Name: Value" header
// text users enter in upload configuration.
package headers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is a single name/value pair taken from one configured line.
type Header struct {
	Name  string
	Value string
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitLines splits raw header text on line breaks, both Unix and Windows.
func SplitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	return lineBreak.Split(raw, -1)
}

// Parse converts raw header text into pairs, splitting each line on the first
// colon and trimming both sides. Empty lines and lines without a colon are
// skipped; send-time parsing is lenient because Validate already flags
// malformed lines at configuration time. The returned slice preserves line
// order. skipped holds the offending lines, for logging.
func Parse(raw string) (hdrs []Header, skipped []string) {
	for _, line := range SplitLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			skipped = append(skipped, line)
			continue
		}
		hdrs = append(hdrs, Header{
			Name:  strings.TrimSpace(line[:idx]),
			Value: strings.TrimSpace(line[idx+1:]),
		})
	}
	return hdrs, skipped
}

// Validate checks raw header text at configuration time. Empty input is valid.
// Each non-empty line must contain a colon and the resulting name/value pair
// must be acceptable to the HTTP transport. Validation stops at the first
// offending line.
func Validate(raw string) error {
	if raw == "" {
		return nil
	}
	for _, line := range SplitLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			return fmt.Errorf("Unexpected header: %s", line)
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" || !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("invalid header name: %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("invalid header value for %s: %q", name, value)
		}
	}
	return nil
}

// ValidateURL checks a configured upload URL. Empty input is valid (the upload
// becomes a no-op). Non-empty values must carry an http or https scheme and
// parse as a URL.
func ValidateURL(value string) error {
	if value == "" {
		return nil
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if _, err := url.Parse(value); err != nil {
		return err
	}
	return nil
}
