package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/metrics"
)

func newRequest(t *testing.T, ctx context.Context, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://example.test/v1/completions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer sk-secret")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDryRunNeverCallsNext(t *testing.T) {
	faker := func(req *http.Request, content string) (*http.Response, error) {
		return JSONResponse(req, map[string]string{"text": content})
	}
	mw := New(Config{Provider: "openai", DryRun: true, DryRunContent: "fake", Faker: faker})

	resp, err := mw(newRequest(t, context.Background(), `{}`), func(*http.Request) (*http.Response, error) {
		t.Fatal("next must not be called in dry-run")
		return nil, nil
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"text":"fake"}`, string(b))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestLogRequestsRedactsSecrets(t *testing.T) {
	var out bytes.Buffer
	logger := log.NewLogger(&bytes.Buffer{}, &out)
	ctx := log.WithLogger(context.Background(), logger)

	mw := New(Config{Provider: "openai", LogRequests: true})
	req := newRequest(t, ctx, `{"prompt":"hello"}`)

	var seen string
	resp, err := mw(req, func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		return JSONResponse(r, map[string]int{"ok": 1})
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, `{"prompt":"hello"}`, seen)
	assert.Contains(t, out.String(), ">REQUEST openai")
	assert.Contains(t, out.String(), `{"prompt":"hello"}`)
	assert.Contains(t, out.String(), "<RESPONSE openai")
	assert.NotContains(t, out.String(), "sk-secret")
	assert.Equal(t, "Bearer sk-secret", req.Header.Get("Authorization"))
}

func TestMetricsObserved(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	mw := New(Config{Provider: "azure", Metrics: m})
	boom := errors.New("boom")
	_, err = mw(newRequest(t, context.Background(), `{}`), func(*http.Request) (*http.Response, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), `lm_requests_total{provider="azure",status="error"} 1`)
}

func TestTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "pong")
	}))
	defer srv.Close()

	var called bool
	client := &http.Client{Transport: Transport(nil, func(req *http.Request, next Next) (*http.Response, error) {
		called = true
		return next(req)
	})}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	assert.True(t, called)
	assert.Equal(t, "pong", string(b))
}

func TestSSEResponse(t *testing.T) {
	req := newRequest(t, context.Background(), `{}`)
	resp, err := SSEResponse(req, []Event{
		{Name: "ping", Data: map[string]string{"type": "ping"}},
		{Data: "[DONE]"},
	})
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)

	assert.True(t, IsEventStream(resp))
	assert.Equal(t, "event: ping\ndata: {\"type\":\"ping\"}\n\ndata: [DONE]\n\n", string(b))
}

func TestReadBody(t *testing.T) {
	req := newRequest(t, context.Background(), "abc")
	b, err := ReadBody(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))

	again, _ := io.ReadAll(req.Body)
	assert.Equal(t, "abc", string(again))
}

func TestChunks(t *testing.T) {
	assert.Nil(t, Chunks(""))
	assert.Equal(t, []string{"hello ", "dry ", "run"}, Chunks("hello dry run"))
	assert.Equal(t, "hello dry run", strings.Join(Chunks("hello dry run"), ""))
}
