// Package tokenizer estimates prompt token counts.
package tokenizer

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/qiangli/lm/api"
)

// DefaultEncoding is used for models tiktoken does not know.
const DefaultEncoding = "cl100k_base"

var loaderOnce sync.Once

// Tiktoken counts tokens with the BPE encoding of an OpenAI model.
// Encodings are loaded from data embedded in the binary.
type Tiktoken struct {
	model string
	enc   *tiktoken.Tiktoken
}

func NewTiktoken(model string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(normalize(model))
	if err != nil {
		enc, err = tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{model: model, enc: enc}, nil
}

// Azure deployments commonly drop the dot: gpt-35-turbo.
func normalize(model string) string {
	return strings.Replace(model, "gpt-35", "gpt-3.5", 1)
}

func (r *Tiktoken) Model() string {
	return r.model
}

func (r *Tiktoken) EstimateTokenCountInText(text string) int {
	if text == "" {
		return 0
	}
	return len(r.enc.Encode(text, nil, nil))
}

// Heuristic estimates one token per four characters, rounded up.
type Heuristic struct{}

func (Heuristic) EstimateTokenCountInText(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

// Cached memoizes counts of recently seen texts.
type Cached struct {
	tokenizer api.Tokenizer
	cache     *lru.Cache[string, int]
}

func NewCached(t api.Tokenizer, size int) (*Cached, error) {
	cache, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	return &Cached{tokenizer: t, cache: cache}, nil
}

func (r *Cached) EstimateTokenCountInText(text string) int {
	if n, ok := r.cache.Get(text); ok {
		return n
	}
	n := r.tokenizer.EstimateTokenCountInText(text)
	r.cache.Add(text, n)
	return n
}

// Default returns a cached tiktoken tokenizer for model, or the heuristic
// when no encoding can be loaded.
func Default(model string) api.Tokenizer {
	var t api.Tokenizer = Heuristic{}
	if tk, err := NewTiktoken(model); err == nil {
		t = tk
	}
	if c, err := NewCached(t, 256); err == nil {
		return c
	}
	return t
}
