package modpipe

import (
	nurl "net/url"
	"os"
	"strings"
)

// isValidURL checks if URL is valid.
func isValidURL(s string) bool {
	u, err := nurl.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Hostname() != ""
}

// createAbsoluteURL convert url to absolute path based on base. The
// fragment is dropped, the query is kept byte for byte.
func createAbsoluteURL(url string, base *nurl.URL) string {
	url = strings.TrimSpace(url)
	if url == "" || base == nil {
		return ""
	}

	// If it is fragment path, return as it is
	if strings.HasPrefix(url, "#") {
		return url
	}

	tmp, err := nurl.Parse(url)
	if err != nil {
		return ""
	}

	tmp.Fragment = ""
	tmp.RawFragment = ""
	return base.ResolveReference(tmp).String()
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDirectory(path string) bool {
	f, err := os.Stat(path)
	if err != nil {
		return false
	}

	return f.IsDir()
}
