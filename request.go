package modpipe

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// DefaultUserAgent is the default user agents which mimic Firefox.
const DefaultUserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:73.0) Gecko/20100101 Firefox/73.0"

// downloadFile sends a single GET request. Responses outside the 2xx range
// are closed and reported as ErrBadStatus.
func downloadFile(ctx context.Context, client *http.Client, url, userAgent, referer string) (*http.Response, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrBadStatus, "%s returned %s", url, resp.Status)
	}

	return resp, nil
}
