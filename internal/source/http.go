package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/resilience"
)

// HTTPProvider fetches payloads over HTTP. Retry and rate limiting live
// in the Gateway; this client makes exactly one request per call and
// classifies the outcome so the retry policy can tell transient from
// permanent failures.
type HTTPProvider struct {
	name      string
	client    *http.Client
	urlFor    func(ref EntityRef) string
	headers   map[string]string
	userAgent string
}

// HTTPProviderOptions configures an HTTPProvider.
type HTTPProviderOptions struct {
	Name      string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// URLFor builds the request URL for an entity.
	URLFor func(ref EntityRef) string
}

// NewHTTPProvider creates an HTTP-backed provider.
func NewHTTPProvider(opts HTTPProviderOptions) *HTTPProvider {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "hoopsync/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPProvider{
		name: opts.Name,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		urlFor:    opts.URLFor,
		headers:   opts.Headers,
		userAgent: opts.UserAgent,
	}
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Fetch(ctx context.Context, ref EntityRef) ([]byte, error) {
	url := p.urlFor(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", p.name)
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Transport errors (timeouts, resets) are retryable.
		return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: request", p.name), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("%s: http %d from %s", p.name, resp.StatusCode, url)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: read body", p.name), 0)
	}
	return body, nil
}
