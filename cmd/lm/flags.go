package main

import (
	"fmt"
	"strings"

	"github.com/qiangli/lm/docs"
)

var tableFormats = []string{docs.FormatMarkdown, docs.FormatYAML, docs.FormatJSON, docs.FormatTerm}

// Capability table format type
type formatValue string

func newFormatValue(val string, p *string) *formatValue {
	*p = val
	return (*formatValue)(p)
}

func (s *formatValue) Set(val string) error {
	for _, v := range tableFormats {
		if val == v {
			*s = formatValue(val)
			return nil
		}
	}
	return fmt.Errorf("invalid format: %v. supported: %s", val, strings.Join(tableFormats, ", "))
}

func (s *formatValue) Type() string {
	return "string"
}

func (s *formatValue) String() string { return string(*s) }
