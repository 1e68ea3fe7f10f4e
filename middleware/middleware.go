// Package middleware wraps vendor HTTP calls with request dumps, dry-run
// fakes, latency logging and metrics.
//
// Func has the same shape as the openai and anthropic option.Middleware
// aliases, so a Func can be passed to either SDK as is. SDKs without a
// middleware hook use Transport.
package middleware

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/metrics"
)

type Next = func(*http.Request) (*http.Response, error)

type Func = func(*http.Request, Next) (*http.Response, error)

// Faker answers a request locally with a vendor shaped payload.
type Faker func(req *http.Request, content string) (*http.Response, error)

type Config struct {
	// provider label for logs and metrics
	Provider string

	// dump requests and responses at info level
	LogRequests bool

	DryRun        bool
	DryRunContent string
	Faker         Faker

	Metrics *metrics.Metrics
}

func New(cfg Config) Func {
	return func(req *http.Request, next Next) (*http.Response, error) {
		start := time.Now()

		ctx := req.Context()
		logger := log.GetLogger(ctx)
		dump := cfg.LogRequests || logger.IsTrace()
		logf := logger.Debugf
		if cfg.LogRequests {
			logf = logger.Infof
		}

		if dump {
			logf(">REQUEST %s: %s\n", cfg.Provider, dumpRequest(req))
		}

		var resp *http.Response
		var err error

		if cfg.DryRun && cfg.Faker != nil {
			resp, err = cfg.Faker(req, cfg.DryRunContent)
		} else {
			resp, err = next(req)
		}

		if dump && resp != nil {
			// event streams are consumed incrementally by the SDKs
			resData, _ := httputil.DumpResponse(resp, !IsEventStream(resp))
			logf("<RESPONSE %s: %s\n", cfg.Provider, string(resData))
		}

		took := time.Since(start)
		status := metrics.StatusError
		var code int
		if resp != nil {
			code = resp.StatusCode
			status = strconv.Itoa(code)
		}
		logger.Debugf("Status: %d, %s request for %s took %dms\n", code, req.Method, req.URL, took.Milliseconds())
		if err != nil {
			logger.Errorf("%s request failed: %v\n", cfg.Provider, err)
		}
		cfg.Metrics.Observe(cfg.Provider, status, took)

		return resp, err
	}
}

var secretHeaders = []string{
	"Authorization",
	"Api-Key",
	"X-Api-Key",
	"X-Goog-Api-Key",
}

func dumpRequest(req *http.Request) string {
	body, err := ReadBody(req)
	if err != nil {
		return err.Error()
	}
	r := req.Clone(req.Context())
	r.Body = io.NopCloser(bytes.NewReader(body))
	for _, h := range secretHeaders {
		if r.Header.Get(h) != "" {
			r.Header.Set(h, "***")
		}
	}
	data, err := httputil.DumpRequest(r, true)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

type roundTripper struct {
	base http.RoundTripper
	fn   Func
}

func (r *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return r.fn(req, r.base.RoundTrip)
}

// Transport runs fn around every request sent through base.
// A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper, fn Func) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &roundTripper{base: base, fn: fn}
}

// ReadBody returns the request body and restores it for the next reader.
func ReadBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

func IsEventStream(resp *http.Response) bool {
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return mt == "text/event-stream"
}
