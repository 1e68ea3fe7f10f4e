package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsageAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b *TokenUsage
		want *TokenUsage
	}{
		{"both nil", nil, nil, nil},
		{"left nil", nil, &TokenUsage{1, 2, 3}, &TokenUsage{1, 2, 3}},
		{"right nil", &TokenUsage{1, 2, 3}, nil, &TokenUsage{1, 2, 3}},
		{"sum", &TokenUsage{1, 2, 3}, &TokenUsage{10, 20, 30}, &TokenUsage{11, 22, 33}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Add(tt.b))
		})
	}
}

func TestTokenUsageAddDoesNotMutate(t *testing.T) {
	a := &TokenUsage{1, 1, 2}
	_ = a.Add(&TokenUsage{1, 1, 2})
	assert.Equal(t, &TokenUsage{1, 1, 2}, a)
}

func TestCapabilities(t *testing.T) {
	caps := NewCapabilities(Embeddings, Completion, Async)

	assert.True(t, caps.Has(Completion))
	assert.False(t, caps.Has(Reranking))
	assert.Equal(t, []Capability{Completion, Async, Embeddings}, caps.List())
	assert.Equal(t, "completion,async,embeddings", caps.String())
	assert.Nil(t, Capabilities(nil).List())
}

func TestCapabilityTitle(t *testing.T) {
	assert.Equal(t, "Completion", Completion.Title())
	assert.Equal(t, "Image Generation", ImageGeneration.Title())
	assert.Equal(t, "", Capability("").Title())
}

func TestErrors(t *testing.T) {
	err := NewUnsupportedError("embeddings")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "unsupported: embeddings", err.Error())

	err = NewConfigError("temperature", "must be between %v and %v", 0, 2)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "temperature", ce.Field)
	assert.Equal(t, "invalid config: temperature must be between 0 and 2", err.Error())

	assert.Equal(t, "not found: provider x", NewNotFoundError("provider x").Error())
}

type fakeModel struct {
	content string
	err     error
}

func (r *fakeModel) Generate(ctx context.Context, prompt string) (*Response, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &Response{Content: r.content + prompt, FinishReason: FinishStop}, nil
}

func TestGenerateAsync(t *testing.T) {
	ch := GenerateAsync(context.Background(), &fakeModel{content: "echo: "}, "hi")
	r, ok := <-ch
	require.True(t, ok)
	require.NoError(t, r.Err)
	assert.Equal(t, "echo: hi", r.Response.Content)

	_, ok = <-ch
	assert.False(t, ok)

	boom := errors.New("boom")
	r = <-GenerateAsync(context.Background(), &fakeModel{err: boom}, "hi")
	assert.ErrorIs(t, r.Err, boom)
	assert.Nil(t, r.Response)
}
