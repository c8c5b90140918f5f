package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/template"
)

func TestRender(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"vars": map[string]any{
			"name":  "ada",
			"count": 3,
			"user":  map[string]any{"role": "admin"},
		},
	}

	tests := []struct {
		name  string
		input string
		want  any
	}{
		{name: "plain string untouched", input: "hello", want: "hello"},
		{name: "variable interpolation", input: "hi {{ .vars.name }}", want: "hi ada"},
		{name: "numeric result parses", input: "{{ .vars.count }}", want: float64(3)},
		{name: "boolean result parses", input: "true", want: true},
		{name: "nested lookup", input: "{{ .vars.user.role }}", want: "admin"},
		{
			name:  "json result decodes",
			input: `{"a": {{ .vars.count }}}`,
			want:  map[string]any{"a": float64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := template.Render(tt.input, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	t.Parallel()

	_, err := template.Render("{{ .vars.name", nil)
	assert.Error(t, err)
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	got, err := template.RenderString("{{ .vars.n }}", map[string]any{"vars": map[string]any{"n": 42}})
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}
