// Package markdown renders comment bodies to sanitized HTML.
package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	parser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	policy = bluemonday.UGCPolicy()
)

func init() {
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// Render converts markdown to sanitized HTML. Raw HTML in the source is
// escaped by goldmark (unsafe rendering is off) and the result is passed
// through a UGC sanitization policy, so the output is safe to store and
// serve as-is.
func Render(source string) string {
	var buf bytes.Buffer
	if err := parser.Convert([]byte(source), &buf); err != nil {
		// Conversion only fails on writer errors, which bytes.Buffer
		// cannot produce; sanitize the raw source as a fallback.
		return policy.Sanitize(source)
	}
	return string(policy.SanitizeBytes(buf.Bytes()))
}
