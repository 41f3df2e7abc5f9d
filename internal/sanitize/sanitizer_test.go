package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "A heist film", "A heist film"},
		{"tags stripped", "<b>Great</b> movie", "Great movie"},
		{"script removed", `<script>alert("x")</script>Nice`, "Nice"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"trimmed", "  <p>spaced</p>  ", "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Text(tt.input))
		})
	}
}

func TestComment_MarkupOnly(t *testing.T) {
	assert.Empty(t, New().Comment("<img src=x onerror=alert(1)>"))
}
