package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	e := NewEngine()

	out, err := e.Render("{{#each specialists}}{{id}};{{/each}}", map[string]interface{}{
		"specialists": []map[string]interface{}{{"id": "sleep"}, {"id": "health"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sleep;health;", out)
}

func TestHelpers(t *testing.T) {
	e := NewEngine()
	data := map[string]interface{}{
		"name":  "  Nap  ",
		"empty": "",
		"tags":  []interface{}{"a", "b"},
		"long":  "ねんねの時間です",
	}

	tests := []struct {
		tmpl string
		want string
	}{
		{"{{uppercase name}}", "  NAP  "},
		{"{{lowercase name}}", "  nap  "},
		{"{{trim name}}", "Nap"},
		{`{{default empty "none"}}`, "none"},
		{`{{join tags ","}}`, "a,b"},
		{"{{truncate long 3}}", "ねんね…"},
		{"{{truncate long 100}}", "ねんねの時間です"},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			out, err := e.Render(tt.tmpl, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNewEngine_Twice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewEngine()
		NewEngine()
	})
}

func TestValidateTemplate(t *testing.T) {
	e := NewEngine()

	assert.NoError(t, e.ValidateTemplate("Message: {{message}}"))
	assert.Error(t, e.ValidateTemplate("{{#each specialists}}"))

	_, err := e.Render("{{#each specialists}}", nil)
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to compile template"))
}
