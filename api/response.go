package api

type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolExecution FinishReason = "tool_execution"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

type Response struct {
	Content string `json:"content"`

	// nil when the vendor reports no usage
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`

	// empty when unknown
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the sum of both usages.
// nil counts as zero; the sum of two nils is nil.
func (r *TokenUsage) Add(o *TokenUsage) *TokenUsage {
	if r == nil && o == nil {
		return nil
	}
	var sum TokenUsage
	for _, u := range []*TokenUsage{r, o} {
		if u == nil {
			continue
		}
		sum.InputTokens += u.InputTokens
		sum.OutputTokens += u.OutputTokens
		sum.TotalTokens += u.TotalTokens
	}
	return &sum
}

type Embedding struct {
	Vector []float32 `json:"vector"`
	Index  int       `json:"index"`
}

type EmbeddingResponse struct {
	Embeddings []Embedding  `json:"embeddings"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

type Image struct {
	URL           string `json:"url,omitempty"`
	Base64        string `json:"base64,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type ImageResponse struct {
	Images []Image `json:"images"`
}
