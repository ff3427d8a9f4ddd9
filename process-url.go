package modpipe

import (
	nurl "net/url"
	"regexp"
	"strings"
)

// variantKeywords is checked in order, so a label naming several regions
// (e.g. "EU/NA/ASIA") gets the first one listed here.
var variantKeywords = []struct {
	variant Variant
	rx      *regexp.Regexp
}{
	{VariantEU, regexp.MustCompile(`\b(EU|EUROPE)\b`)},
	{VariantNA, regexp.MustCompile(`\b(NA|NORTH AMERICA|US)\b`)},
	{VariantASIA, regexp.MustCompile(`\b(ASIA|SEA)\b`)},
}

// ClassifyLink tags a download link by the region named in its label.
// Labels that name no region are generic.
func ClassifyLink(label string) Variant {
	label = strings.ToUpper(label)
	for _, kw := range variantKeywords {
		if kw.rx.MatchString(label) {
			return kw.variant
		}
	}

	return VariantGeneric
}

// resolveDownloadURL converts the href of a download anchor into the URL of
// the archive itself. Download anchors usually point to a redirector page
// which carries the archive URL in the query parameter param. The archive
// URL keeps its query untouched, download links are often signed.
func resolveDownloadURL(href string, baseURL *nurl.URL, param string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	url := createAbsoluteURL(href, baseURL)
	if !isValidURL(url) {
		return ""
	}

	if param != "" {
		parsedURL, err := nurl.Parse(url)
		if err == nil {
			if target := parsedURL.Query().Get(param); target != "" {
				url = createAbsoluteURL(target, parsedURL)
			}
		}
	}

	if !isValidURL(url) {
		return ""
	}

	return url
}
