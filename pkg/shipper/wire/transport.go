package wire

import (
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// LoggingRoundTripper logs every vendor request at debug level and failures at warn.
type LoggingRoundTripper struct {
	Proxied http.RoundTripper
	Logger  *otelzap.Logger
}

// RoundTrip executes the request and logs details. Query strings are left
// out of the log since some vendors take credentials there.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := lrt.Logger.Ctx(req.Context())
	target := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		log.Warn("Carrier request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("Carrier request completed",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// NewHTTPClient returns an http.Client with logging middleware.
func NewHTTPClient(timeout time.Duration, logger *otelzap.Logger) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
			Logger:  logger,
		},
		Timeout: timeout,
	}
}
