package modpipe

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// DefaultTimeout bounds every request made by the parser and the fetcher.
const DefaultTimeout = time.Minute

func newHTTPClient(timeout time.Duration, skipTLSVerification bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerification {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}
}
