package htmlsanitize_test

import (
	"html/template"
	"strings"
	"testing"

	"github.com/dalemusser/tierhub/internal/app/system/htmlsanitize"
)

func TestSanitize_KeepsQuestionFormatting(t *testing.T) {
	cases := []string{
		"",
		"Will the data be publicly available?",
		"<p><strong>Personal data</strong> means data relating to an <em>identifiable</em> living person.</p>",
		"<ul><li>pseudonymised</li><li>anonymised</li></ul>",
		"<ol><li>First check</li><li>Second check</li></ol>",
		"<h2>Commercial sensitivity</h2>",
		"<blockquote>From the data sharing agreement</blockquote>",
		"<pre><code>dataset-2024-03</code></pre>",
	}
	for _, in := range cases {
		if got := htmlsanitize.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitize_StripsDangerousContent(t *testing.T) {
	cases := []struct {
		name, in, banned string
	}{
		{"script", "<p>Hi</p><script>alert(1)</script>", "script"},
		{"iframe", `<p>Hi</p><iframe src="https://evil.example"></iframe>`, "iframe"},
		{"style", "<style>body{}</style><p>Hi</p>", "<style>"},
		{"onclick", `<button onclick="alert(1)">go</button>`, "onclick"},
		{"onerror", `<img src="x" onerror="alert(1)">`, "onerror"},
		{"js href", `<a href="javascript:alert(1)">go</a>`, "javascript:"},
	}
	for _, tc := range cases {
		got := htmlsanitize.Sanitize(tc.in)
		if strings.Contains(got, tc.banned) {
			t.Errorf("%s: Sanitize(%q) = %q, still contains %q", tc.name, tc.in, got, tc.banned)
		}
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.org/handbook">handbook</a>`)
	if !strings.Contains(got, "https://example.org/handbook") {
		t.Errorf("expected safe link preserved, got %q", got)
	}
}

func TestSanitize_KeepsTables(t *testing.T) {
	in := `<table class="tiers"><tr><td colspan="2">Tier</td></tr></table>`
	got := htmlsanitize.Sanitize(in)
	for _, want := range []string{`class="tiers"`, `colspan="2"`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q preserved, got %q", want, got)
		}
	}
}

func TestIsPlainText(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"no tags here", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>tagged</p>", false},
	}
	for _, tc := range cases {
		if got := htmlsanitize.IsPlainText(tc.in); got != tc.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"one line", "<p>one line</p>"},
		{"a\nb", "<p>a<br>b</p>"},
		{"A & B", "<p>A &amp; B</p>"},
	}
	for _, tc := range cases {
		if got := htmlsanitize.PlainTextToHTML(tc.in); got != tc.want {
			t.Errorf("PlainTextToHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrepareForDisplay(t *testing.T) {
	if got := htmlsanitize.PrepareForDisplay("plain"); got != template.HTML("<p>plain</p>") {
		t.Errorf("plain: got %q", got)
	}
	if got := htmlsanitize.PrepareForDisplay("<p>Hi</p><script>x</script>"); got != template.HTML("<p>Hi</p>") {
		t.Errorf("html: got %q", got)
	}
}
