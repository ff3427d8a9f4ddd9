package modpipe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"readme.txt":          "read me",
		"config/settings.xml": "<root/>",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/mods/sample.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modPage("SamplePack", "1.24.1", "/engine/go.php?xf=/files/sample.zip"))
	})
	mux.HandleFunc("/files/sample.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	linksPath := filepath.Join(dir, "json", "links.json")
	resultsPath := filepath.Join(dir, "json", "results.json")
	downloadsDir := filepath.Join(dir, "download_mods")
	outputDir := filepath.Join(dir, "unpacking_mods")

	writeTree(t, dir, map[string]string{
		"json/links.json": fmt.Sprintf(`{"packs": ["%s/mods/sample.html"]}`, server.URL),
	})

	ctx := context.Background()

	parser := &Parser{}
	parser.Validate()
	summary, err := ParseLinks(ctx, parser, linksPath, resultsPath)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	results, err := LoadResults(resultsPath)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SamplePack", results[0].Title)
	assert.Equal(t, "1.24.1", results[0].PatchVersion)

	fetcher := &Fetcher{DownloadsDir: downloadsDir}
	fetcher.Validate()
	summary, err = FetchArchives(ctx, fetcher, resultsPath)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, []string{"SamplePack.zip"}, listTree(t, downloadsDir))

	unpacker := &Unpacker{DownloadsDir: downloadsDir, OutputDir: outputDir}
	summary, err = unpacker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	assert.Equal(t, []string{
		"SamplePack/",
		"SamplePack/config/",
		"SamplePack/config/settings.xml",
	}, listTree(t, outputDir))

	content, err := os.ReadFile(filepath.Join(outputDir, "SamplePack", "config", "settings.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<root/>", string(content))
}
