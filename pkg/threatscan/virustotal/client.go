// Package virustotal provides a threatscan.Client implementation backed by
// the VirusTotal v3 REST API.
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"scanrelay/pkg/domain"
	"scanrelay/pkg/serrors"
	"scanrelay/pkg/threatscan"
	"strings"
)

// DefaultBaseURL is the public VirusTotal API host.
const DefaultBaseURL = "https://www.virustotal.com"

// Client talks to the VirusTotal REST API and fulfills the threatscan.Client
// interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to VirusTotal
	baseURL    string       // baseURL is the scheme and host requests are sent to
	apiKey     string       // apiKey is sent in the x-apikey header
}

// URLID returns the identifier VirusTotal uses for a URL: the unpadded
// base64url encoding of its bytes.
func URLID(URL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(URL))
}

// SubmitURL submits the URL for analysis and returns the analysis ID found at
// data.id of the response.
func (c *Client) SubmitURL(ctx context.Context, URL string) (threatscan.SubmitRes, error) {
	// https://docs.virustotal.com/reference/scan-url
	form := url.Values{"url": {URL}}
	b, err := c.do(ctx, "submit url", http.MethodPost, "/api/v3/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return threatscan.SubmitRes{}, err
	}

	id, found, err := lookupString(b, "data", "id")
	if err != nil {
		return threatscan.SubmitRes{}, serrors.Wrap(serrors.ErrUnavailable, err, "could not decode submit response")
	}
	if !found || id == "" {
		return threatscan.SubmitRes{}, serrors.With(serrors.ErrUnavailable, "submit response has no analysis id")
	}

	return threatscan.SubmitRes{ID: id}, nil
}

// Analysis fetches the analysis object and reports its data.attributes.status.
func (c *Client) Analysis(ctx context.Context, analysisID string) (*threatscan.Analysis, error) {
	// https://docs.virustotal.com/reference/analysis
	b, err := c.do(ctx, "get analysis", http.MethodGet, "/api/v3/analyses/"+url.PathEscape(analysisID), nil)
	if err != nil {
		return nil, err
	}

	status, _, err := lookupString(b, "data", "attributes", "status")
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not decode analysis response")
	}

	return &threatscan.Analysis{
		Status: domain.AnalysisStatus(status),
		Raw:    b,
	}, nil
}

// URLReport fetches the cached URL report stored under URLID(URL).
func (c *Client) URLReport(ctx context.Context, URL string) (json.RawMessage, error) {
	// https://docs.virustotal.com/reference/url-info
	b, err := c.do(ctx, "get url report", http.MethodGet, "/api/v3/urls/"+URLID(URL), nil)
	if err != nil {
		return nil, err
	}
	if !validJSON(b) {
		return nil, serrors.With(serrors.ErrUnavailable, "url report is not valid JSON")
	}

	return b, nil
}

// do sends one authenticated request and returns the body of a 2xx response.
// Other statuses are classified by threatscan.StatusError.
func (c *Client) do(ctx context.Context, op string, method string, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not send %s request", op)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not read %s response body", op)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, threatscan.StatusError(op, resp.StatusCode, b)
	}

	return b, nil
}

// Ensure Client conforms to the threatscan.Client interface at compile time.
var _ threatscan.Client = (*Client)(nil)

// New constructs a Client that uses the provided http.Client and API key. An
// empty baseURL selects DefaultBaseURL.
func New(httpClient *http.Client, baseURL string, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}
