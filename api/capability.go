package api

import (
	"strings"
)

type Capability string

const (
	Completion      Capability = "completion"
	Streaming       Capability = "streaming"
	Async           Capability = "async"
	Embeddings      Capability = "embeddings"
	ImageGeneration Capability = "image_generation"
	Reranking       Capability = "reranking"
)

// AllCapabilities in display order.
var AllCapabilities = []Capability{
	Completion,
	Streaming,
	Async,
	Embeddings,
	ImageGeneration,
	Reranking,
}

func (r Capability) Title() string {
	switch r {
	case ImageGeneration:
		return "Image Generation"
	default:
		s := string(r)
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

type Capabilities map[Capability]bool

func NewCapabilities(caps ...Capability) Capabilities {
	r := make(Capabilities, len(caps))
	for _, c := range caps {
		r[c] = true
	}
	return r
}

func (r Capabilities) Has(c Capability) bool {
	return r[c]
}

// List returns the supported capabilities in display order.
func (r Capabilities) List() []Capability {
	var list []Capability
	for _, c := range AllCapabilities {
		if r[c] {
			list = append(list, c)
		}
	}
	return list
}

func (r Capabilities) String() string {
	var sa []string
	for _, c := range r.List() {
		sa = append(sa, string(c))
	}
	return strings.Join(sa, ",")
}
