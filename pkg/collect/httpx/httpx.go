// Package httpx builds the retryablehttp client ossuary's collectors
// share, grounded on the retry configuration in SharanRP-gh-notif's
// internal/github/client.go.
package httpx

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ossuary/ossuary/pkg/core/logging"
)

// DefaultCeiling is the hard per-call timeout every collector applies,
// regardless of retries (spec §4.3/§4.4's "60s hard ceiling").
const DefaultCeiling = 60 * time.Second

// NewClient returns an *http.Client backed by retryablehttp with
// jittered exponential backoff: up to 3 retries, doubling from 500ms,
// capped at 8s between attempts. Each computed wait is randomized into
// [wait/2, wait]; a server-supplied Retry-After is used as given.
func NewClient(log *logging.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		wait := retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
		if resp != nil && resp.Header.Get("Retry-After") != "" {
			return wait
		}
		half := int64(wait / 2)
		return time.Duration(half + rand.Int63n(half+1))
	}
	rc.Logger = retryableLogAdapter{log}
	rc.HTTPClient.Timeout = DefaultCeiling
	return rc.StandardClient()
}

// retryableLogAdapter routes retryablehttp's leveled logging through
// ossuary's slog-based logger.
type retryableLogAdapter struct {
	log *logging.Logger
}

func (a retryableLogAdapter) Printf(format string, v ...interface{}) {
	if a.log == nil {
		return
	}
	a.log.Debugf(format, v...)
}
