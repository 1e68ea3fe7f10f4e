// Package llm holds the client options shared by all vendor adapters.
package llm

import (
	"net/http"
	"net/url"
	"time"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/metrics"
	"github.com/qiangli/lm/middleware"
)

// Stand-ins for missing credentials when requests never leave the process.
const (
	DryRunAPIKey   = "dry-run"
	DryRunEndpoint = "https://dry-run.invalid"
)

type ProxyConfig struct {
	// http, https or socks5
	URL      string `yaml:"url" json:"url" mapstructure:"url"`
	Username string `yaml:"username,omitempty" json:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" mapstructure:"password"`
}

// ClientOptions configure the HTTP pipeline of a vendor client.
type ClientOptions struct {
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`

	// nil keeps the SDK default
	MaxRetries *int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" mapstructure:"max_retries"`

	Proxy *ProxyConfig `yaml:"proxy,omitempty" json:"proxy,omitempty" mapstructure:"proxy"`

	LogRequestsAndResponses bool `yaml:"log_requests,omitempty" json:"log_requests,omitempty" mapstructure:"log_requests"`

	DryRun        bool   `yaml:"dry_run,omitempty" json:"dry_run,omitempty" mapstructure:"dry_run"`
	DryRunContent string `yaml:"dry_run_content,omitempty" json:"dry_run_content,omitempty" mapstructure:"dry_run_content"`

	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" mapstructure:"headers"`

	Metrics *metrics.Metrics `yaml:"-" json:"-" mapstructure:"-"`
}

func (r *ClientOptions) Validate() error {
	if r.Timeout < 0 {
		return api.NewConfigError("timeout", "must not be negative")
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return api.NewConfigError("max_retries", "must not be negative")
	}
	if r.Proxy != nil {
		if _, err := r.Proxy.parse(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProxyConfig) parse() (*url.URL, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, api.NewConfigError("proxy.url", "%v", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, api.NewConfigError("proxy.url", "unsupported scheme %q", u.Scheme)
	}
	if r.Username != "" {
		u.User = url.UserPassword(r.Username, r.Password)
	}
	return u, nil
}

// HTTPClient returns a client routed through the configured proxy.
// It returns nil when no proxy is set so the SDK keeps its default client.
func (r *ClientOptions) HTTPClient() (*http.Client, error) {
	if r.Proxy == nil {
		return nil, nil
	}
	u, err := r.Proxy.parse()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(u)
	return &http.Client{Transport: transport}, nil
}

// DryRunKey returns key, or DryRunAPIKey when key is empty and requests are
// faked.
func (r *ClientOptions) DryRunKey(key string) string {
	if key == "" && r.DryRun {
		return DryRunAPIKey
	}
	return key
}

// Middleware returns the request pipeline for provider.
// faker answers requests locally when DryRun is set.
func (r *ClientOptions) Middleware(provider string, faker middleware.Faker) middleware.Func {
	return middleware.New(middleware.Config{
		Provider:      provider,
		LogRequests:   r.LogRequestsAndResponses,
		DryRun:        r.DryRun,
		DryRunContent: r.DryRunContent,
		Faker:         faker,
		Metrics:       r.Metrics,
	})
}

// Float returns a pointer to v, for optional sampling parameters.
func Float(v float64) *float64 {
	return &v
}

func Int(v int) *int {
	return &v
}

// CheckRange reports a config error when v is set and outside [min, max].
func CheckRange(field string, v *float64, min, max float64) error {
	if v != nil && (*v < min || *v > max) {
		return api.NewConfigError(field, "must be between %v and %v, got %v", min, max, *v)
	}
	return nil
}

// CheckPositive reports a config error when v is set and not positive.
func CheckPositive(field string, v *int) error {
	if v != nil && *v <= 0 {
		return api.NewConfigError(field, "must be positive, got %d", *v)
	}
	return nil
}
