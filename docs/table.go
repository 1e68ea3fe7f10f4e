// Package docs renders the provider capability matrix and builds the
// documentation site.
package docs

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/config"
	"github.com/qiangli/lm/llm/adapter"
)

const (
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatJSON     = "json"
	FormatTerm     = "term"
)

const (
	supported   = "✅"
	unsupported = "❌"
)

type row struct {
	Provider     string           `json:"provider" yaml:"provider"`
	Capabilities []api.Capability `json:"capabilities" yaml:"capabilities"`
}

// Table renders rows as markdown, yaml, json or styled terminal text.
func Table(rows []adapter.Row, format string) (string, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return markdown(rows), nil
	case FormatTerm:
		return Render(markdown(rows)), nil
	case FormatYAML:
		b, err := config.Marshal(plain(rows))
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatJSON:
		b, err := json.MarshalIndent(plain(rows), "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	}
	return "", api.NewUnsupportedError("format " + format)
}

func plain(rows []adapter.Row) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		caps := r.Capabilities.List()
		if caps == nil {
			caps = []api.Capability{}
		}
		out = append(out, row{Provider: r.Provider, Capabilities: caps})
	}
	return out
}

func markdown(rows []adapter.Row) string {
	var sb strings.Builder

	sb.WriteString("| Provider |")
	for _, c := range api.AllCapabilities {
		sb.WriteString(" " + c.Title() + " |")
	}
	sb.WriteString("\n|---|")
	for range api.AllCapabilities {
		sb.WriteString(":---:|")
	}
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString("| " + r.Provider + " |")
		for _, c := range api.AllCapabilities {
			mark := unsupported
			if r.Capabilities.Has(c) {
				mark = supported
			}
			sb.WriteString(" " + mark + " |")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Render styles markdown for the terminal. The input is returned
// unchanged when rendering fails.
func Render(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
		glamour.WithEmoji(),
	)
	if err != nil {
		return text
	}
	styled, err := r.Render(text)
	if err != nil {
		return text
	}
	return styled
}
