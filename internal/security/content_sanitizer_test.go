package security

import (
	"strings"
	"testing"
)

// TestSanitizeHTML_AllowedTags は許可タグが通過することを検証する。
func TestSanitizeHTML_AllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"pタグ", "<p>規約第1条</p>", "<p>規約第1条</p>"},
		{"見出し", "<h2>概要</h2>", "<h2>概要</h2>"},
		{"リスト", "<ul><li>A</li><li>B</li></ul>", "<ul><li>A</li><li>B</li></ul>"},
		{"コード", "<pre><code>SELECT 1</code></pre>", "<pre><code>SELECT 1</code></pre>"},
		{"表", "<table><tr><td>RUC</td></tr></table>", "<td>RUC</td>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			if !strings.Contains(got, tt.want) {
				t.Errorf("SanitizeHTML(%q) = %q, want contains %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeHTML_RemovesDangerousContent は危険なタグと属性が除去されることを検証する。
func TestSanitizeHTML_RemovesDangerousContent(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		notContain string
	}{
		{"script", `<p>ok</p><script>alert(1)</script>`, "<script"},
		{"iframe", `<iframe src="https://evil.example"></iframe>`, "<iframe"},
		{"style", `<style>body{}</style>`, "<style"},
		{"onclick", `<p onclick="steal()">x</p>`, "onclick"},
		{"javascriptリンク", `<a href="javascript:alert(1)">x</a>`, "javascript:"},
		{"相対リンク", `<a href="/admin">x</a>`, `href="/admin"`},
		{"img", `<img src="https://example.com/a.png">`, "<img"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			if strings.Contains(got, tt.notContain) {
				t.Errorf("SanitizeHTML(%q) = %q, should not contain %q", tt.input, got, tt.notContain)
			}
		})
	}
}

// TestSanitizeHTML_ExternalLink は外部リンクにtargetとrelが付与されることを検証する。
func TestSanitizeHTML_ExternalLink(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeHTML(`<a href="https://sunat.gob.pe">SUNAT</a>`)
	for _, want := range []string{`href="https://sunat.gob.pe"`, `target="_blank"`, "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("SanitizeHTML() = %q, want contains %q", got, want)
		}
	}
}

func TestSanitizeHTML_Idempotent(t *testing.T) {
	s := NewContentSanitizer()
	input := `<p>a<script>x</script><a href="https://example.com">b</a></p>`

	once := s.SanitizeHTML(input)
	twice := s.SanitizeHTML(once)
	if once != twice {
		t.Errorf("not idempotent: %q != %q", once, twice)
	}
}

// TestPlainText はタグを除去し、文字はそのまま残すことを検証する。
func TestPlainText(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"¿Qué es el RUC?", "¿Qué es el RUC?"},
		{"Q&A", "Q&A"},
		{"<b>hola</b> mundo", "hola mundo"},
		{"<script>alert(1)</script>texto", "texto"},
		{"  espacios  ", "espacios"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := s.PlainText(tt.input); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
