package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

// ProviderName is the config value selecting this provider
const ProviderName = "alpha_vantage"

const defaultBaseURL = "https://www.alphavantage.co"

// ErrMissingAPIKey is returned by NewClient without a key
var ErrMissingAPIKey = errors.New("alpha vantage requires ALPHA_VANTAGE_API_KEY")

// Client handles communication with the Alpha Vantage query API
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

var _ contracts.Provider = (*Client)(nil)

// NewClient creates a new Alpha Vantage client
func NewClient(httpClient *httputil.Client, apiKey string, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", ProviderName),
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}, nil
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

// query calls /query with the given function and decodes into dest.
// Alpha Vantage reports throttling and bad symbols with HTTP 200 and a
// Note / Information / Error Message field instead of data.
func (c *Client) query(ctx context.Context, function string, params url.Values, dest interface{}) error {
	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	var raw json.RawMessage
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/query?"+params.Encode(), &raw); err != nil {
		return err
	}

	var notice struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(raw, &notice); err == nil {
		switch {
		case notice.ErrorMessage != "":
			return fmt.Errorf("%s: %s", function, notice.ErrorMessage)
		case notice.Note != "":
			return fmt.Errorf("%s: rate limited: %s", function, notice.Note)
		case notice.Information != "":
			return fmt.Errorf("%s: %s", function, notice.Information)
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", function, err)
	}
	return nil
}

func (c *Client) wrap(op, symbol string, err error) error {
	return contracts.NewProviderError(ProviderName, op, symbol, err)
}
