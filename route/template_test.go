package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplatePlaceholders(t *testing.T) {
	tmpl, err := ParseTemplate("/course/{id:[0-9]+}[/section/{section}[/{item:[a-z]{2,4}}]]")
	require.NoError(t, err)

	phs := tmpl.Placeholders()
	require.Len(t, phs, 3)

	assert.Equal(t, "id", phs[0].Name)
	assert.Equal(t, "[0-9]+", phs[0].Pattern)
	assert.False(t, phs[0].Optional)

	assert.Equal(t, "section", phs[1].Name)
	assert.True(t, phs[1].Optional)

	assert.Equal(t, "item", phs[2].Name)
	assert.Equal(t, "[a-z]{2,4}", phs[2].Pattern)
	assert.True(t, phs[2].Optional)

	assert.True(t, phs[0].Match("42"))
	assert.False(t, phs[0].Match("42a"))
	assert.True(t, phs[1].Match("anything"))
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unclosed_brace", raw: "/a/{id"},
		{name: "stray_close_brace", raw: "/a/id}"},
		{name: "unclosed_bracket", raw: "/a[/{id}"},
		{name: "stray_close_bracket", raw: "/a]/{id}"},
		{name: "duplicate", raw: "/a/{id}/b/{id}"},
		{name: "bad_name", raw: "/a/{1d}"},
		{name: "empty_name", raw: "/a/{}"},
		{name: "bad_regex", raw: "/a/{id:(}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "no_optional",
			raw:      "/course/{id}",
			expected: []string{"/course/{id}"},
		},
		{
			name:     "one_optional",
			raw:      "/course/{id}[/section/{section}]",
			expected: []string{"/course/{id}/section/{section}", "/course/{id}"},
		},
		{
			name:     "nested_optional",
			raw:      "/course/{id:[0-9]+}[/section/{section}[/item/{item}]]",
			expected: []string{"/course/{id}/section/{section}/item/{item}", "/course/{id}/section/{section}", "/course/{id}"},
		},
		{
			name:     "sequential_optional",
			raw:      "/a[/{b}][/{c}]",
			expected: []string{"/a/{b}/{c}", "/a/{b}", "/a"},
		},
		{
			name:     "optional_literal_only",
			raw:      "/a[/b]",
			expected: []string{"/a/b"},
		},
		{
			name:     "everything_optional",
			raw:      "[/{id}]",
			expected: []string{"/{id}", "/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tmpl.Expand())
		})
	}
}

func TestExpandEmitsOnePathPerOptionalParameter(t *testing.T) {
	tmpl, err := ParseTemplate("/r/{a}[/{b}[/{c}[/{d}]]]")
	require.NoError(t, err)

	paths := tmpl.Expand()
	require.Len(t, paths, 4)

	full := paths[0]
	seen := map[string]bool{}
	for _, p := range paths {
		assert.NotContains(t, p, "[")
		assert.NotContains(t, p, "]")
		assert.True(t, strings.HasPrefix(full, p))
		assert.False(t, seen[p])
		seen[p] = true
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "/a/{id}/b", Clean("/a/{id:[0-9]+}[/b]"))
	assert.Equal(t, "/a/{id}", Clean("/a/{id:[0-9]{1,3}}"))
	assert.Equal(t, "/", Clean(""))
}

func TestEchoPath(t *testing.T) {
	assert.Equal(t, "/course/:id/section/:section", EchoPath("/course/{id}/section/{section}"))
	assert.Equal(t, "/static", EchoPath("/static"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("/course/{id}", "id"))
	assert.False(t, Contains("/course/{id}", "section"))
	assert.False(t, Contains("/course/{identifier}", "id"))
}
