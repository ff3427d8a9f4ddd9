package modpipe

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidURL(t *testing.T) {
	assert.True(t, isValidURL("https://wotspeak.org/mods/zoom.html"))
	assert.False(t, isValidURL("itIsNotAURL"))
	assert.False(t, isValidURL("/relative/path"))
	assert.False(t, isValidURL("javascript:void(0)"))
}

func TestCreateAbsoluteURL(t *testing.T) {
	rawURL := "https://wotspeak.org/mods/page.html"
	parsedURL, err := url.Parse(rawURL)
	require.NoError(t, err)

	assert.Equal(t, "https://wotspeak.org/it/is/relativepath", createAbsoluteURL("/it/is/relativepath", parsedURL))
	assert.Equal(t, "https://wotspeak.org/mods/file.zip", createAbsoluteURL("file.zip", parsedURL))
	assert.Equal(t, "https://bing.com", createAbsoluteURL("https://bing.com", parsedURL))
	assert.Equal(t, "https://bing.com/a?id=1&utm_source=x", createAbsoluteURL("https://bing.com/a?id=1&utm_source=x#top", parsedURL))
	assert.Equal(t, "https://bing.com/a?z=2&a=1", createAbsoluteURL("https://bing.com/a?z=2&a=1", parsedURL))
	assert.Equal(t, "", createAbsoluteURL("", parsedURL))
	assert.Equal(t, "", createAbsoluteURL("/path", nil))
	assert.Equal(t, "#bar", createAbsoluteURL("#bar", parsedURL))
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "a", "sub/": ""})

	assert.True(t, fileExists(filepath.Join(dir, "a.txt")))
	assert.True(t, fileExists(filepath.Join(dir, "sub")))
	assert.False(t, fileExists(filepath.Join(dir, "missing")))

	assert.True(t, isDirectory(filepath.Join(dir, "sub")))
	assert.False(t, isDirectory(filepath.Join(dir, "a.txt")))
}
