package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiangli/lm/api"
)

const testConfig = `
models:
  claude:
    provider: anthropic
    api_key: sk-ant-secret
  small:
    provider: openai
    api_key: sk-secret
    embedding_model: text-embedding-3-small
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("LM_CONFIG", "")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))
	return path
}

func TestCapabilities(t *testing.T) {
	out, _, err := run(t, "capabilities")
	require.NoError(t, err)
	assert.Contains(t, out, "| Provider |")
	assert.Contains(t, out, "| azure |")
	assert.Contains(t, out, "| gemini |")

	out, _, err = run(t, "capabilities", "--format", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 4)
}

func TestCapabilitiesInvalidFormat(t *testing.T) {
	_, _, err := run(t, "capabilities", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGenerateDryRun(t *testing.T) {
	out, _, err := run(t, "generate",
		"--config", writeConfig(t),
		"--model", "claude",
		"--dry-run", "--dry-run-content", "hi there",
		"--usage",
		"Say", "hi",
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hi there\n"), out)
	assert.Contains(t, out, "[finish] stop")
	assert.Contains(t, out, "[usage] input:")
}

func TestDryRunWithoutCredentials(t *testing.T) {
	for _, env := range []string{"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(env, "")
	}
	for _, provider := range []string{"azure", "openai", "anthropic", "gemini"} {
		t.Run(provider, func(t *testing.T) {
			out, _, err := run(t, "generate",
				"--provider", provider,
				"--dry-run",
				"--dry-run-content", "offline",
				"hi",
			)
			require.NoError(t, err)
			assert.Contains(t, out, "offline")
		})
	}
}

func TestGenerateParallel(t *testing.T) {
	out, _, err := run(t, "generate",
		"--provider", "openai", "--api-key", "k",
		"--dry-run", "--dry-run-content", "ok",
		"--parallel",
		"first", "second", "third",
	)
	require.NoError(t, err)
	assert.Equal(t, "ok\nok\nok\n", out)
}

func TestStreamDryRun(t *testing.T) {
	out, _, err := run(t, "stream",
		"--provider", "gemini", "--api-key", "k",
		"--dry-run", "--dry-run-content", "one two three",
		"count",
	)
	require.NoError(t, err)
	assert.Equal(t, "one two three\n", out)
}

func TestEmbedDryRun(t *testing.T) {
	out, _, err := run(t, "embed",
		"--config", writeConfig(t),
		"--model", "small",
		"--dry-run",
		"alpha", "beta",
	)
	require.NoError(t, err)

	var resp api.EmbeddingResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Embeddings, 2)
	assert.NotEmpty(t, resp.Embeddings[0].Vector)
}

func TestEmbedUnsupported(t *testing.T) {
	_, _, err := run(t, "embed",
		"--config", writeConfig(t),
		"--model", "claude",
		"--dry-run",
		"alpha",
	)
	assert.True(t, errors.Is(err, api.ErrUnsupported))
}

func TestImageDryRun(t *testing.T) {
	out, _, err := run(t, "image",
		"--config", writeConfig(t),
		"--model", "small",
		"--dry-run",
		"a red fox",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "https://dry-run.invalid/")
}

func TestTokensWithoutCredentials(t *testing.T) {
	out, _, err := run(t, "tokens", "hello", "world")
	require.NoError(t, err)

	n, err := strconv.Atoi(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestUnknownModel(t *testing.T) {
	_, _, err := run(t, "generate", "--config", writeConfig(t), "--model", "nope", "hi")

	var nf *api.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestConfigShowRedacts(t *testing.T) {
	out, _, err := run(t, "config", "show", "--config", writeConfig(t), "--model", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: anthropic")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "sk-ant-secret")
}

func TestConfigList(t *testing.T) {
	out, _, err := run(t, "config", "list", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "claude\nsmall\n", out)
}

func TestMetricsFlag(t *testing.T) {
	_, stderr, err := run(t, "generate",
		"--provider", "anthropic", "--api-key", "k",
		"--dry-run", "--metrics",
		"hi",
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, `lm_requests_total{provider="anthropic",status="200"} 1`)
	assert.Contains(t, stderr, `lm_request_duration_seconds_count{provider="anthropic"} 1`)
}

func TestDocs(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, "docs", "--out", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "providers.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<table>")
	assert.Contains(t, string(data), "anthropic")
}
