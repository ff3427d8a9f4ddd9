package modpipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLinks(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadLinks(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected []string
	}{
		{
			name:     "json categories keep file order",
			file:     "links.json",
			content:  `{"zeta": ["https://a/3", "https://a/1"], "alpha": ["https://a/2"]}`,
			expected: []string{"https://a/3", "https://a/1", "https://a/2"},
		},
		{
			name:     "json list",
			file:     "links.json",
			content:  `["https://a/1", " https://a/2 ", ""]`,
			expected: []string{"https://a/1", "https://a/2"},
		},
		{
			name:     "yaml categories",
			file:     "links.yaml",
			content:  "sights:\n  - https://a/1\nsounds: []\nhangars:\n  - https://a/2\n  - https://a/1\n",
			expected: []string{"https://a/1", "https://a/2", "https://a/1"},
		},
		{
			name:     "text file",
			file:     "links.txt",
			content:  "https://a/1\n\n  https://a/2  \n",
			expected: []string{"https://a/1", "https://a/2"},
		},
		{
			name:     "empty file",
			file:     "links.json",
			content:  "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := LoadLinks(writeLinks(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, links)
		})
	}
}

func TestLoadLinksErrors(t *testing.T) {
	_, err := LoadLinks(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadLinks(writeLinks(t, "scalar.json", `"https://a/1"`))
	assert.Error(t, err)

	_, err = LoadLinks(writeLinks(t, "nested.json", `{"sights": {"a": "https://a/1"}}`))
	assert.Error(t, err)

	_, err = LoadLinks(writeLinks(t, "broken.json", `["https://a/1"`))
	assert.Error(t, err)
}
