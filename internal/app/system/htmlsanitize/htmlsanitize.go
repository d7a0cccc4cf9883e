// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize cleans the rich-text bodies of classification
// questions and guidance before they are stored. Question sets arrive via
// the import format with author-supplied HTML; nothing unsafe may survive
// past this package.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy allows the formatting used by question and guidance bodies:
// paragraphs, emphasis, lists, headings, tables, code, and safe links.
// Scripts, iframes, event attributes, and javascript: URLs are stripped.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("mark", "u", "s")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")
	return p
}

// Sanitize returns s with disallowed HTML removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// SanitizeToHTML sanitizes s and marks the result safe for templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s contains no HTML tags. A lone < or > (as
// in "5 < 10") still counts as plain text.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes plain text and wraps it in a paragraph, turning
// newlines into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders either plain text or author HTML safely:
// plain text is escaped and wrapped, HTML is sanitized.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
