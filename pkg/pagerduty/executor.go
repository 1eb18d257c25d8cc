package pagerduty

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ExecutorOptions tunes the HTTP execution unit.
type ExecutorOptions struct {
	// Timeout bounds a single task including its retries. Zero disables it.
	Timeout time.Duration
	// RetryMax is the number of retries on connection errors, 429 and 5xx.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond paces outbound requests. Zero means unlimited.
	RequestsPerSecond float64
	// HTTPClient overrides the underlying client, mostly for tests.
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// HTTPExecutor executes requests over HTTP with bounded retries.
type HTTPExecutor struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewHTTPExecutor returns an Executor backed by a retrying HTTP client.
func NewHTTPExecutor(opts ExecutorOptions) *HTTPExecutor {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	// hand the last response back so the status ends up in our error message
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = leveledLogger{entry: opts.Logger.WithField("component", "http-executor")}
	}

	e := &HTTPExecutor{client: client, timeout: opts.Timeout}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return e
}

// Execute issues the request and returns the body of a 2xx response.
func (e *HTTPExecutor) Execute(ctx context.Context, request Request) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter refused %s request: %w", request.Resource, err)
		}
	}

	url := request.URL()
	req, err := retryablehttp.NewRequestWithContext(ctx, request.Method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %q: %w", url, err)
	}
	req.Header = request.Header()

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make %s request to %q: %w", request.Method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %q: %w", url, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected HTTP response from %q (%s)", url, resp.Status)
	}
	return body, nil
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) with(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.entry.WithFields(fields)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}
