package hosting

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

type options struct {
	verbose bool
	logger  zerolog.Logger
	bearer  string
	base    http.RoundTripper
}

type Option func(*options)

// WithVerbose logs every request and response (including latency) through logger.
func WithVerbose(enabled bool, logger zerolog.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// WithBearerToken authenticates requests with an oauth2 static bearer token.
func WithBearerToken(token string) Option {
	return func(o *options) {
		o.bearer = token
	}
}

// WithTransport replaces http.DefaultTransport as the innermost transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response when verbose logging is enabled. Only method, URL path
// and status are logged; headers (and so tokens) never are.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Info().Str("method", req.Method).Str("url", redactedURL(req)).Msg("[verbose] hosting api request")
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Info().Err(err).Dur("duration", dur).Msg("[verbose] hosting api error")
	} else {
		t.logger.Info().Int("status", resp.StatusCode).Dur("duration", dur).Msg("[verbose] hosting api response")
	}
	return resp, err
}

func redactedURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.User = nil
	q := u.Query()
	for _, k := range []string{"token", "access_token", "sudo"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NewHTTPClient builds the http.Client every hosting provider uses. It always
// returns a client so verbose logging works even without a token.
func NewHTTPClient(opts ...Option) *http.Client {
	o := &options{logger: zerolog.Nop()}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := o.base
	if transport == nil {
		transport = http.DefaultTransport
	}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if o.bearer != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.bearer})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &http.Client{Transport: transport}
}
