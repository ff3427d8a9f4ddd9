package modpipe

import (
	"fmt"
	"io"
	nurl "net/url"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

func (p *Parser) processHTML(input io.Reader, baseURL *nurl.URL) (ModRecord, error) {
	// Parse input into HTML document
	doc, err := html.Parse(input)
	if err != nil {
		return ModRecord{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Keep script and comment text out of the extracted fields
	p.removeScripts(doc)
	p.removeComments(doc)

	title := p.extractTitle(doc)
	if title == "" {
		return ModRecord{}, ErrNoTitle
	}

	record := ModRecord{
		Title:         title,
		DownloadLinks: []DownloadLink{},
	}
	record.UpdatedAt, record.PatchVersion = p.extractInfo(doc)

	for _, link := range p.extractDownloadLinks(doc, baseURL) {
		record.addLink(link)
	}

	return record, nil
}

// extractTitle returns the mod title, falling back to the first heading
// and then to the document title.
func (p *Parser) extractTitle(doc *html.Node) string {
	for _, selector := range []string{p.Selectors.Title, "h1", "title"} {
		if node := dom.QuerySelector(doc, selector); node != nil {
			if title := normalizeText(dom.TextContent(node)); title != "" {
				return title
			}
		}
	}

	return ""
}

// extractInfo returns the update date and patch version from the info
// blocks of the page. Missing values are returned empty.
func (p *Parser) extractInfo(doc *html.Node) (updatedAt string, patchVersion string) {
	for _, info := range dom.QuerySelectorAll(doc, p.Selectors.Info) {
		text := normalizeText(dom.TextContent(info))

		if updatedAt == "" && strings.Contains(text, p.Selectors.UpdatedLabel) {
			updatedAt = textAfter(text, p.Selectors.UpdatedLabel)
		}

		if patchVersion == "" && strings.Contains(text, p.Selectors.PatchLabel) {
			if label := dom.QuerySelector(info, p.Selectors.Patch); label != nil {
				patchVersion = normalizeText(dom.TextContent(label))
			}
			if patchVersion == "" {
				patchVersion = textAfter(text, p.Selectors.PatchLabel)
			}
		}
	}

	return updatedAt, patchVersion
}

// extractDownloadLinks returns every download anchor of the page as a
// classified link, in document order.
func (p *Parser) extractDownloadLinks(doc *html.Node, baseURL *nurl.URL) []DownloadLink {
	var links []DownloadLink

	for _, a := range dom.QuerySelectorAll(doc, p.Selectors.Download) {
		url := resolveDownloadURL(dom.GetAttribute(a, "href"), baseURL, p.Selectors.LinkParam)
		if url == "" {
			continue
		}

		label := dom.TextContent(a) + " " + dom.GetAttribute(a, "title")
		links = append(links, DownloadLink{
			URL:     url,
			Variant: ClassifyLink(label),
		})
	}

	return links
}

// removeScripts removes script, noscript and style tags from the document.
func (p *Parser) removeScripts(doc *html.Node) {
	scripts := dom.GetAllNodesWithTag(doc, "script", "noscript", "style")
	dom.RemoveNodes(scripts, nil)
}

// removeComments find all comments in document then remove it.
func (p *Parser) removeComments(doc *html.Node) {
	// Find all comments
	var comments []*html.Node
	var finder func(*html.Node)

	finder = func(node *html.Node) {
		if node.Type == html.CommentNode {
			comments = append(comments, node)
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			finder(child)
		}
	}

	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		finder(child)
	}

	// Remove it
	dom.RemoveNodes(comments, nil)
}

// normalizeText collapses every run of whitespace into a single space.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textAfter returns the trimmed text that follows label in s.
func textAfter(s, label string) string {
	idx := strings.Index(s, label)
	if idx < 0 {
		return ""
	}

	return strings.TrimSpace(s[idx+len(label):])
}
