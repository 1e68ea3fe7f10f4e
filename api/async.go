package api

import (
	"context"
)

type Result struct {
	Response *Response
	Err      error
}

// GenerateAsync runs Generate on its own goroutine. The channel receives
// exactly one Result and is then closed.
func GenerateAsync(ctx context.Context, m LanguageModel, prompt string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := m.Generate(ctx, prompt)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}
