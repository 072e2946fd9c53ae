package yahoo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

// ProviderName is the config value selecting this provider
const ProviderName = "yahoo"

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string

	// MaxExpirations bounds how many expiration dates one chain request walks
	MaxExpirations int
}

var _ contracts.Provider = (*Client)(nil)

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		logger:         log.WithField("provider", ProviderName),
		baseURL:        defaultBaseURL,
		MaxExpirations: 8,
	}
}

// WithBaseURL points the client at another host (tests, proxies)
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Name implements contracts.Provider
func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) endpoint(path string, params url.Values) string {
	full := c.baseURL + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	return full
}

func (c *Client) wrap(op, symbol string, err error) error {
	return contracts.NewProviderError(ProviderName, op, symbol, err)
}

func apiError(e *apiErr) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", e.Code, e.Description)
}
