package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultProductionURL = "https://cloud.iexapis.com/v1"
	DefaultSandboxURL    = "https://sandbox.iexapis.com/v1"

	sandboxTokenPrefix = "tsk_"
	userAgent          = "StockOverview/1.0"
	maxErrorBody       = 512
)

// IEXFetcher implements Fetcher against IEX Cloud. Sandbox tokens are routed
// to the sandbox host.
type IEXFetcher struct {
	ProductionURL string
	SandboxURL    string
	Client        *http.Client
}

// NewIEXFetcher creates a fetcher with optional proxy support. Empty URLs fall
// back to the public IEX hosts.
func NewIEXFetcher(productionURL, sandboxURL, proxyURL string) *IEXFetcher {
	if productionURL == "" {
		productionURL = DefaultProductionURL
	}
	if sandboxURL == "" {
		sandboxURL = DefaultSandboxURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &IEXFetcher{
		ProductionURL: strings.TrimRight(productionURL, "/"),
		SandboxURL:    strings.TrimRight(sandboxURL, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *IEXFetcher) Name() string { return "iex" }

// BaseURL picks the API host for token.
func (f *IEXFetcher) BaseURL(token string) string {
	if strings.Contains(strings.ToLower(token), sandboxTokenPrefix) {
		return f.SandboxURL
	}
	return f.ProductionURL
}

func (f *IEXFetcher) Get(ctx context.Context, token, path string) ([]byte, error) {
	u, err := url.Parse(f.BaseURL(token) + path)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", path, err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		// url.Error repeats the URL, token included.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &UpstreamError{Path: path, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
