package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var (
	errProjectIDRequired = errors.New("sanity project id is required")
	errDatasetRequired   = errors.New("sanity dataset is required")
)

// Config identifies the content lake to read from.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
}

// Client runs read-only GROQ queries against the Sanity HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataset    string
	apiVersion string
	token      string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL replaces the project host, e.g. for a local proxy.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	dataset := strings.TrimSpace(cfg.Dataset)
	if dataset == "" {
		return nil, errDatasetRequired
	}
	version := strings.TrimPrefix(strings.TrimSpace(cfg.APIVersion), "v")
	if version == "" {
		version = "2024-01-01"
	}

	host := "api.sanity.io"
	// Authenticated reads bypass the CDN so drafts and private datasets resolve.
	if cfg.UseCDN && strings.TrimSpace(cfg.Token) == "" {
		host = "apicdn.sanity.io"
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    fmt.Sprintf("https://%s.%s", projectID, host),
		dataset:    dataset,
		apiVersion: version,
		token:      strings.TrimSpace(cfg.Token),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Query executes a GROQ query and decodes the "result" member into dest.
// Params are bound as $name and JSON-encoded per the query API.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sanity client not configured")
	}
	if strings.TrimSpace(query) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "groq query is required")
	}

	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("encode param %s", name))
		}
		values.Set("$"+strings.TrimPrefix(name, "$"), string(encoded))
	}

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		strings.TrimRight(c.baseURL, "/"), c.apiVersion, url.PathEscape(c.dataset), values.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sanity query request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sanity query")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sanity query failed")
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sanity response")
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sanity result")
	}
	return nil
}
