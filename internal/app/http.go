package app

import (
	"net"
	"net/http"
	"time"

	"github.com/hyperifyio/webevidence/internal/source"
)

// Connection setup never gets more than this, even with long fetch timeouts.
const maxConnectTimeout = 5 * time.Second

// newFetchHTTPClient returns the client shared by the fetch pool and the SERP
// proxy. Connection limits follow the pool width so a single host never sees
// more sockets than there are workers. Dial and TLS setup are bounded by the
// per-page timeout; whole-request deadlines come from the callers' contexts,
// with a generous client timeout as a backstop for slow proxy pages.
func newFetchHTTPClient(workers int, fetchTimeout time.Duration) *http.Client {
	if workers <= 0 {
		workers = source.DefaultWorkers
	}
	connect := fetchTimeout
	if connect <= 0 || connect > maxConnectTimeout {
		connect = maxConnectTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          workers * 4,
		MaxIdleConnsPerHost:   workers,
		MaxConnsPerHost:       workers,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connect,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
