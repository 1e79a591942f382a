package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace", "   \n ", ""},
		{"plain text", "Family-run tours since 1998", "Family-run tours since 1998"},
		{"safe markup", "<p><strong>Bold</strong> and <em>italic</em></p>", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"script removed", "<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
		{"style removed", "<style>p{color:red}</style><p>Hi</p>", "<p>Hi</p>"},
		{"lists kept", "<ul><li>Rome</li><li>Paris</li></ul>", "<ul><li>Rome</li><li>Paris</li></ul>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_StripsDangerousAttributes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		banned string
	}{
		{"onclick", `<p onclick="alert('xss')">Click</p>`, "onclick"},
		{"javascript href", `<a href="javascript:alert('xss')">Click</a>`, "javascript:"},
		{"iframe", `<iframe src="https://evil.example"></iframe><p>ok</p>`, "iframe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tt.input)
			if strings.Contains(got, tt.banned) {
				t.Errorf("Sanitize(%q) = %q, still contains %q", tt.input, got, tt.banned)
			}
		})
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.com">Site</a>`)
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("safe link lost: %q", got)
	}
}
