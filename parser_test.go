package modpipe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modPage(title, patch string, links ...string) string {
	page := fmt.Sprintf(`<html><body>
		<header class="full-title"><h1>%s</h1></header>
		<div class="full-info">Дата обновления: 01.02.2024</div>
		<div class="full-info">Актуально для патча: <label class="patch">%s</label></div>`, title, patch)
	for _, link := range links {
		page += fmt.Sprintf(`<a class="down_new" href="%s">Перейти к скачиванию >>></a>`, link)
	}
	return page + "</body></html>"
}

func newPageServer(t *testing.T, pages map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	for path, page := range pages {
		page := page
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, page)
		})
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestParser_Validate(t *testing.T) {
	p := &Parser{}
	p.Validate()

	assert.Equal(t, DefaultUserAgent, p.UserAgent)
	assert.Equal(t, DefaultSelectors, p.Selectors)
	assert.NotNil(t, p.httpClient)
	assert.Equal(t, DefaultTimeout, p.httpClient.Timeout)
	assert.True(t, p.isValidated)
}

func TestParser_Parse(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, modPage("Zoom", "1.24", "/files/zoom.zip"))
	}))
	defer server.Close()

	p := &Parser{UserAgent: "modpipe-test"}

	t.Run("not validated", func(t *testing.T) {
		_, err := p.Parse(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parser hasn't been validated")
	})

	p.Validate()

	t.Run("valid page", func(t *testing.T) {
		record, err := p.Parse(context.Background(), server.URL+"/mods/zoom.html")
		require.NoError(t, err)

		assert.Equal(t, "modpipe-test", userAgent.Load())
		assert.Equal(t, ModRecord{
			Title:        "Zoom",
			UpdatedAt:    "01.02.2024",
			PatchVersion: "1.24",
			DownloadLinks: []DownloadLink{
				{URL: server.URL + "/files/zoom.zip", Variant: VariantGeneric},
			},
		}, record)
	})

	t.Run("not valid url", func(t *testing.T) {
		_, err := p.Parse(context.Background(), "notValidURL")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `url "notValidURL" is not valid`)
	})
}

func TestParser_Run(t *testing.T) {
	server := newPageServer(t, map[string]string{
		"/first":    modPage("First", "1.24", "/files/first.zip"),
		"/no-title": `<html><body><p>removed</p></body></html>`,
		"/second":   modPage("Second", "1.23"),
	})

	links := []string{
		server.URL + "/first",
		server.URL + "/missing",
		server.URL + "/no-title",
		server.URL + "/second",
	}

	p := &Parser{}
	p.Validate()

	results, summary := p.Run(context.Background(), links)

	require.Len(t, results, 2)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "Second", results[1].Title)
	assert.Empty(t, results[1].DownloadLinks)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed[KindNetwork])
	assert.Equal(t, 1, summary.Failed[KindParse])
}

func TestParseLinks(t *testing.T) {
	server := newPageServer(t, map[string]string{
		"/a": modPage("Alpha", "1.24", "/files/a.zip"),
		"/b": modPage("Beta", "1.24", "/files/b.rar"),
		"/c": modPage("Gamma", "1.23", "/files/c.zip"),
	})

	dir := t.TempDir()
	linksPath := filepath.Join(dir, "links.json")
	resultsPath := filepath.Join(dir, "json", "results.json")

	links := fmt.Sprintf(`{"sights": ["%[1]s/c", "%[1]s/a"], "sounds": ["%[1]s/b"]}`, server.URL)
	require.NoError(t, os.WriteFile(linksPath, []byte(links), 0644))

	// A previous run is replaced, not merged
	require.NoError(t, SaveResults(resultsPath, ResultsList{{Title: "Stale"}}))

	p := &Parser{}
	p.Validate()

	summary, err := ParseLinks(context.Background(), p, linksPath, resultsPath)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)

	results, err := LoadResults(resultsPath)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Gamma", results[0].Title)
	assert.Equal(t, "Alpha", results[1].Title)
	assert.Equal(t, "Beta", results[2].Title)
	assert.Equal(t, server.URL+"/files/b.rar", results[2].DownloadLinks[0].URL)
}

func TestParseLinksMissingSource(t *testing.T) {
	dir := t.TempDir()
	resultsPath := filepath.Join(dir, "results.json")

	_, err := ParseLinks(context.Background(), &Parser{}, filepath.Join(dir, "missing.json"), resultsPath)
	require.Error(t, err)
	assert.NoFileExists(t, resultsPath)
}
