package modpipe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/kennygrant/sanitize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// partSuffix marks a download that hasn't finished yet.
const partSuffix = ".part"

var (
	rxArchiveExt   = regexp.MustCompile(`^\.[a-z0-9]{2,5}$`)
	rxNameJoiners  = regexp.MustCompile(`[\s&_=+:/\\]+`)
	rxNameIllegal  = regexp.MustCompile(`[^\p{L}\p{N}\-.]`)
	rxNameRepeated = regexp.MustCompile(`-{2,}`)
)

// variantPriority is the regional preference used to pick one download
// link per record. Earlier entries win.
var variantPriority = []Variant{VariantEU, VariantNA, VariantASIA, VariantGeneric}

// SelectLink picks the link to download from a record's candidates: the
// first link of the most preferred variant present. Links with an unknown
// variant count as generic. It returns false when there is nothing to pick.
func SelectLink(links []DownloadLink) (DownloadLink, bool) {
	for _, variant := range variantPriority {
		for _, link := range links {
			if link.URL != "" && knownVariant(link.Variant) == variant {
				return link, true
			}
		}
	}

	return DownloadLink{}, false
}

func knownVariant(v Variant) Variant {
	switch v {
	case VariantEU, VariantNA, VariantASIA:
		return v
	default:
		return VariantGeneric
	}
}

// ArchiveFileName derives the file name a record is downloaded to.
//
// The name comes from the record title (plus its patch version when
// includePatch is set), keeping letters of any script. Titles without any
// letter fall back to the file name of the link, and as a last resort to
// "mod-<index+1>". The extension is taken from the link.
func ArchiveFileName(record ModRecord, link DownloadLink, index int, includePatch bool) string {
	urlName, ext := urlFileParts(link.URL)

	title := record.Title
	if includePatch && record.PatchVersion != "" {
		title += " " + record.PatchVersion
	}

	name := safeBaseName(title)
	if !hasLetter(name) {
		if fromURL := safeBaseName(urlName); fromURL != "" {
			name = fromURL
		}
	}
	if name == "" {
		name = fmt.Sprintf("mod-%d", index+1)
	}

	return name + ext
}

// safeBaseName turns s into a file name: separators become dashes, and
// anything but letters, digits, dashes and dots is dropped.
func safeBaseName(s string) string {
	s = sanitize.Accents(s)
	s = rxNameJoiners.ReplaceAllString(s, "-")
	s = rxNameIllegal.ReplaceAllString(s, "")
	s = rxNameRepeated.ReplaceAllString(s, "-")
	return strings.Trim(s, "-.")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// urlFileParts returns the unescaped last path segment of url without its
// extension, and the lower-cased extension when it looks like one.
func urlFileParts(url string) (name string, ext string) {
	parsedURL, err := nurl.Parse(url)
	if err != nil {
		return "", ""
	}

	base := path.Base(parsedURL.Path)
	if base == "." || base == "/" {
		return "", ""
	}

	ext = strings.ToLower(path.Ext(base))
	if !rxArchiveExt.MatchString(ext) {
		return base, ""
	}

	return base[:len(base)-len(ext)], ext
}

// Fetcher downloads one archive for every record of a results list.
type Fetcher struct {
	DownloadsDir        string
	IncludePatchVersion bool

	UserAgent        string
	EnableLog        bool
	EnableVerboseLog bool

	Transport           http.RoundTripper
	RequestTimeout      time.Duration
	SkipTLSVerification bool

	isValidated bool
	httpClient  *http.Client
}

// Validate prepares Fetcher to make sure its configurations
// are valid and ready to use. Must be run at least once before
// fetching started.
func (f *Fetcher) Validate() {
	if f.UserAgent == "" {
		f.UserAgent = DefaultUserAgent
	}

	if f.DownloadsDir == "" {
		f.DownloadsDir = "."
	}

	f.httpClient = newHTTPClient(f.RequestTimeout, f.SkipTLSVerification)
	if f.Transport != nil {
		f.httpClient.Transport = f.Transport
	}

	f.isValidated = true
}

// Fetch downloads the preferred archive of record. It reports skipped when
// the record has no link or its archive is already on disk. Returned
// errors are *ItemError.
func (f *Fetcher) Fetch(ctx context.Context, index int, record ModRecord) (skipped bool, written int64, err error) {
	if !f.isValidated {
		return false, 0, fmt.Errorf("fetcher hasn't been validated")
	}

	link, ok := SelectLink(record.DownloadLinks)
	if !ok {
		return true, 0, nil
	}

	dstPath := filepath.Join(f.DownloadsDir, ArchiveFileName(record, link, index, f.IncludePatchVersion))
	fields := logrus.Fields{"title": record.Title, "url": link.URL, "file": dstPath}

	// Presence on disk is the completion marker
	if fileExists(dstPath) {
		debugf(f.EnableVerboseLog, fields, "archive already downloaded")
		return true, 0, nil
	}

	logf(f.EnableLog, fields, "downloading %s variant", knownVariant(link.Variant))

	resp, err := downloadFile(ctx, f.httpClient, link.URL, f.UserAgent, "")
	if err != nil {
		return false, 0, itemError(KindNetwork, record.Title, errors.Wrapf(err, "download of %s failed", link.URL))
	}
	defer resp.Body.Close()

	written, err = f.writeArchive(resp.Body, dstPath)
	if err != nil {
		return false, 0, err
	}

	return false, written, nil
}

// writeArchive streams body into dstPath through a temporary ".part" file,
// so an interrupted download is never mistaken for a finished one.
func (f *Fetcher) writeArchive(body io.Reader, dstPath string) (int64, error) {
	partPath := dstPath + partSuffix

	dst, err := os.Create(partPath)
	if err != nil {
		return 0, itemError(KindFilesystem, dstPath, err)
	}

	written, err := io.Copy(dst, body)
	if err != nil {
		dst.Close()
		os.Remove(partPath)
		// The body is a network stream, a failed copy is a failed download
		// unless the disk refused the write.
		kind := KindNetwork
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			kind = KindFilesystem
		}
		return 0, itemError(kind, dstPath, errors.Wrap(err, "failed to save archive"))
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(partPath)
		return 0, itemError(KindFilesystem, dstPath, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(partPath)
		return 0, itemError(KindFilesystem, dstPath, err)
	}

	if err := os.Rename(partPath, dstPath); err != nil {
		os.Remove(partPath)
		return 0, itemError(KindFilesystem, dstPath, err)
	}

	return written, nil
}

// Run fetches every record in order. Failed downloads are logged and
// counted, they never stop the run.
func (f *Fetcher) Run(ctx context.Context, results ResultsList) Summary {
	summary := newSummary("fetch")

	for i, record := range results {
		fields := logrus.Fields{"title": record.Title}

		skipped, written, err := f.Fetch(ctx, i, record)
		switch {
		case err != nil:
			logFailure(err, fields)
			summary.fail(err)
		case skipped:
			if len(record.DownloadLinks) == 0 {
				debugf(f.EnableVerboseLog, fields, "no download link")
			}
			summary.skip()
		default:
			summary.succeed()
			summary.Bytes += written
		}
	}

	return summary
}

// FetchArchives loads the results list at resultsPath and downloads an
// archive for every record into f.DownloadsDir. Only an unreadable results
// list or an unusable downloads directory is returned as error.
func FetchArchives(ctx context.Context, f *Fetcher, resultsPath string) (Summary, error) {
	results, err := LoadResults(resultsPath)
	if err != nil {
		return newSummary("fetch"), err
	}

	if !f.isValidated {
		f.Validate()
	}

	if err := os.MkdirAll(f.DownloadsDir, os.ModePerm); err != nil {
		return newSummary("fetch"), errors.Wrap(err, "failed to create downloads directory")
	}

	return f.Run(ctx, results), nil
}
