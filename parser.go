package modpipe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Selectors tells the parser where mod metadata lives in a page.
type Selectors struct {
	Title        string `mapstructure:"title"`
	Info         string `mapstructure:"info"`
	Patch        string `mapstructure:"patch"`
	Download     string `mapstructure:"download"`
	UpdatedLabel string `mapstructure:"updated_label"`
	PatchLabel   string `mapstructure:"patch_label"`
	LinkParam    string `mapstructure:"link_param"`
}

// DefaultSelectors matches the markup of wotspeak.org mod pages.
var DefaultSelectors = Selectors{
	Title:        "header.full-title h1",
	Info:         "div.full-info",
	Patch:        "label.patch",
	Download:     "a.down_new",
	UpdatedLabel: "Дата обновления:",
	PatchLabel:   "Актуально для патча:",
	LinkParam:    "xf",
}

// Parser downloads mod pages and extracts a ModRecord from each of them.
type Parser struct {
	Selectors Selectors

	UserAgent        string
	EnableLog        bool
	EnableVerboseLog bool

	Transport           http.RoundTripper
	RequestTimeout      time.Duration
	SkipTLSVerification bool

	isValidated bool
	httpClient  *http.Client
}

// Validate prepares Parser to make sure its configurations
// are valid and ready to use. Must be run at least once before
// parsing started.
func (p *Parser) Validate() {
	if p.UserAgent == "" {
		p.UserAgent = DefaultUserAgent
	}

	p.Selectors = withDefaultSelectors(p.Selectors)

	p.httpClient = newHTTPClient(p.RequestTimeout, p.SkipTLSVerification)
	if p.Transport != nil {
		p.httpClient.Transport = p.Transport
	}

	p.isValidated = true
}

func withDefaultSelectors(s Selectors) Selectors {
	if s.Title == "" {
		s.Title = DefaultSelectors.Title
	}
	if s.Info == "" {
		s.Info = DefaultSelectors.Info
	}
	if s.Patch == "" {
		s.Patch = DefaultSelectors.Patch
	}
	if s.Download == "" {
		s.Download = DefaultSelectors.Download
	}
	if s.UpdatedLabel == "" {
		s.UpdatedLabel = DefaultSelectors.UpdatedLabel
	}
	if s.PatchLabel == "" {
		s.PatchLabel = DefaultSelectors.PatchLabel
	}
	if s.LinkParam == "" {
		s.LinkParam = DefaultSelectors.LinkParam
	}
	return s
}

// Parse downloads the page at pageURL and extracts its mod record.
// Returned errors are *ItemError.
func (p *Parser) Parse(ctx context.Context, pageURL string) (ModRecord, error) {
	// Make sure parser has been validated
	if !p.isValidated {
		return ModRecord{}, fmt.Errorf("parser hasn't been validated")
	}

	if !isValidURL(pageURL) {
		return ModRecord{}, itemError(KindParse, pageURL, fmt.Errorf("url \"%s\" is not valid", pageURL))
	}

	resp, err := downloadFile(ctx, p.httpClient, pageURL, p.UserAgent, "")
	if err != nil {
		return ModRecord{}, itemError(KindNetwork, pageURL, errors.Wrap(err, "download failed"))
	}
	defer resp.Body.Close()

	return p.ParseDocument(resp.Body, resp.Request.URL.String())
}

// ParseDocument extracts a mod record from an already downloaded page.
// pageURL is used to resolve relative links.
func (p *Parser) ParseDocument(input io.Reader, pageURL string) (ModRecord, error) {
	baseURL, err := nurl.Parse(pageURL)
	if err != nil {
		return ModRecord{}, itemError(KindParse, pageURL, err)
	}

	record, err := p.processHTML(input, baseURL)
	if err != nil {
		return ModRecord{}, itemError(KindParse, pageURL, err)
	}

	return record, nil
}

// Run parses every link in order. A page that can't be downloaded or that
// has no title is logged and left out of the results; every other page
// produces a record, possibly with empty fields.
func (p *Parser) Run(ctx context.Context, links []string) (ResultsList, Summary) {
	summary := newSummary("parse")
	results := ResultsList{}

	for _, link := range links {
		fields := logrus.Fields{"url": link}
		logf(p.EnableLog, fields, "parsing page")

		record, err := p.Parse(ctx, link)
		if err != nil {
			logFailure(err, fields)
			summary.fail(err)
			continue
		}

		debugf(p.EnableVerboseLog, fields, "found %q (patch %q) with %d download links",
			record.Title, record.PatchVersion, len(record.DownloadLinks))

		results = append(results, record)
		summary.succeed()
	}

	return results, summary
}

// ParseLinks reads the link source at linksPath, parses every page and
// overwrites the results list at resultsPath. Only an unreadable link
// source or an unwritable results file is returned as error.
func ParseLinks(ctx context.Context, p *Parser, linksPath, resultsPath string) (Summary, error) {
	links, err := LoadLinks(linksPath)
	if err != nil {
		return newSummary("parse"), err
	}

	if !p.isValidated {
		p.Validate()
	}

	results, summary := p.Run(ctx, links)
	if err := SaveResults(resultsPath, results); err != nil {
		return summary, err
	}

	logf(p.EnableLog, logrus.Fields{"file": resultsPath}, "saved %d records", len(results))
	return summary, nil
}
