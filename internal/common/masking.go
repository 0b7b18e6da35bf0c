package common

import (
	"strings"
)

// Masked is the replacement text for sensitive header values.
const Masked = "***MASKED***"

// sensitiveHeaderNames lists header names whose values must never reach the log
// output verbatim. Matching is case-insensitive on the canonical name.
var sensitiveHeaderNames = []string{
	"authorization",
	"proxy-authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
	"api-key",
	"x-auth-token",
	"x-access-token",
}

// Masker hides sensitive header values before they are logged.
type Masker struct {
	names   map[string]struct{}
	enabled bool
}

// NewMasker creates a masker covering the default sensitive header names.
func NewMasker() *Masker {
	names := make(map[string]struct{}, len(sensitiveHeaderNames))
	for _, n := range sensitiveHeaderNames {
		names[n] = struct{}{}
	}
	return &Masker{names: names, enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled
}

// AddName registers an additional header name to mask.
func (m *Masker) AddName(name string) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return
	}
	m.names[n] = struct{}{}
}

// MaskHeader returns the value to log for the given header name. Sensitive
// headers come back fully replaced; everything else passes through.
func (m *Masker) MaskHeader(name, value string) string {
	if !m.enabled {
		return value
	}
	if _, ok := m.names[strings.ToLower(strings.TrimSpace(name))]; ok && value != "" {
		return Masked
	}
	return value
}

// MaskHeaderMap returns a copy of headers with sensitive values replaced.
func (m *Masker) MaskHeaderMap(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = m.MaskHeader(k, v)
	}
	return out
}
