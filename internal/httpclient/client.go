package httpclient

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns an http.Client whose requests are logged under the given
// service name.
func New(service string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingTransport{service: service},
	}
}

// loggingTransport wraps an http.RoundTripper and records method, URL,
// latency and status. Bodies are never logged since they carry prompts and
// credentials travel in headers.
type loggingTransport struct {
	service string
	base    http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	entry := logrus.WithFields(logrus.Fields{
		"service": t.service,
		"method":  req.Method,
		"host":    req.URL.Host,
		"path":    req.URL.Path,
	})
	entry.Debug("outbound request")

	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		entry.WithError(err).WithField("elapsed", time.Since(start)).Warn("outbound request failed")
		return resp, err
	}

	entry.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("outbound response")
	return resp, nil
}
