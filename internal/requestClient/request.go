package requestClient

import (
	"net"
	"net/http"
	"time"
)

// New builds the shared HTTP client used by the REST price providers.
// Per-call deadlines come from the request context, so the client carries
// no global timeout of its own.
func New() *http.Client {
	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: tr,
	}
}
