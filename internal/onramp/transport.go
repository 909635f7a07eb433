package onramp

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/simonvc/fundcard/internal/fund"
	"github.com/simonvc/fundcard/internal/logging"
)

// Transport is an http.RoundTripper that logs every request with its status
// and duration. Session tokens in URLs are redacted.
type Transport struct {
	inner  http.RoundTripper
	logger *log.Logger
}

func NewTransport(inner http.RoundTripper, l *log.Logger) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &Transport{inner: inner, logger: logging.Or(l)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.inner.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	url := fund.RedactURL(req.URL.String())
	if err != nil {
		t.logger.Warn("onramp request failed", "method", req.Method, "url", url, "duration_ms", duration, "err", err)
		return resp, err
	}
	t.logger.Debug("onramp request", "method", req.Method, "url", url, "status", resp.StatusCode, "duration_ms", duration)
	return resp, nil
}
