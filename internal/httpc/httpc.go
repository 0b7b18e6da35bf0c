package httpc

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Defaults mirror the upload contract: establishing the connection may take up
// to 30s, the response up to 60s. No retries at this layer.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

type Httpc struct {
	TlsConfig      *tls.Config
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// New returns a resty.Client configured according to the receiver's timeout and
// TLS settings. Defaults: 30s connect, 60s read, MinVersion TLS1.2 when a TLS
// config is supplied with MinVersion zero.
func (h *Httpc) New() *resty.Client {
	connect := h.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	read := h.ReadTimeout
	if read <= 0 {
		read = DefaultReadTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connect,
		}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
	}
	if cfg := h.TlsConfig; cfg != nil {
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		transport.TLSClientConfig = cfg
	}

	c := resty.New()
	c.SetTransport(transport)
	c.SetTimeout(connect + read)
	return c
}

// ParseTLSVersion converts a TLS version string to the corresponding crypto/tls
// constant. Supports various formats: "1.2", "12", "tls1.2", "tls12", etc.
// Returns 0 if the version string is not recognized.
func ParseTLSVersion(version string) uint16 {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}
