package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

const quoteJSON = `{"Global Quote":{"01. symbol":"IBM","02. open":"165.00","03. high":"167.20","04. low":"164.10",
"05. price":"166.50","06. volume":"4321000","07. latest trading day":"2024-01-16",
"08. previous close":"164.90","09. change":"1.60","10. change percent":"0.9703%"}}`

const dailyJSON = `{"Meta Data":{"2. Symbol":"IBM"},"Time Series (Daily)":{
"2024-01-16":{"1. open":"165.00","2. high":"167.20","3. low":"164.10","4. close":"166.50","5. volume":"4321000"},
"2024-01-12":{"1. open":"163.00","2. high":"165.00","3. low":"162.50","4. close":"164.90","5. volume":"3900000"},
"2024-01-11":{"1. open":"162.00","2. high":"163.50","3. low":"161.00","4. close":"163.00","5. volume":"3500000"}}}`

const optionsJSON = `{"endpoint":"Realtime Options","message":"success","data":[
{"contractID":"IBM240216P00160000","symbol":"IBM","expiration":"2024-02-16","strike":"160.00","type":"put",
 "last":"2.10","bid":"2.05","ask":"2.15","volume":"420","open_interest":"3100","implied_volatility":"0.21","delta":"-0.31"},
{"contractID":"IBM240216C00175000","symbol":"IBM","expiration":"2024-02-16","strike":"175.00","type":"call",
 "last":"1.00","bid":"0.95","ask":"1.05","volume":"150","open_interest":"2200","implied_volatility":"0.19","delta":"0.24"},
{"contractID":"BROKEN","symbol":"IBM","expiration":"soon","strike":"1","type":"put"}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	c, err := NewClient(httpClient, "demo", logger.Nop())
	require.NoError(t, err)
	return c.WithBaseURL(srv.URL)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(httputil.New(&config.Config{}, logger.Nop()), " ", logger.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, quoteJSON)
	})

	q, err := c.GetQuote(context.Background(), "IBM")
	require.NoError(t, err)

	assert.Equal(t, 166.5, q.Price)
	assert.Equal(t, int64(4321000), q.Volume)
	assert.Equal(t, 164.9, q.PreviousClose)
	assert.InDelta(t, 0.9703, q.ChangePercent, 1e-9)
	assert.Equal(t, "2024-01-16", q.Timestamp.Format("2006-01-02"))
}

func TestGetHistorical(t *testing.T) {
	var outputSize string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		outputSize = r.URL.Query().Get("outputsize")
		fmt.Fprint(w, dailyJSON)
	})

	bars, err := c.GetHistorical(context.Background(), "IBM", 300)
	require.NoError(t, err)
	assert.Equal(t, "full", outputSize)
	require.Len(t, bars, 3)
	assert.Equal(t, "2024-01-11", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, 166.5, bars[2].Close)

	bars, err = c.GetHistorical(context.Background(), "IBM", 2)
	require.NoError(t, err)
	assert.Equal(t, "compact", outputSize)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-12", bars[0].Date.Format("2006-01-02"))
}

func TestGetOptionChain(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "REALTIME_OPTIONS", r.URL.Query().Get("function"))
		assert.Equal(t, "true", r.URL.Query().Get("require_greeks"))
		fmt.Fprint(w, optionsJSON)
	})

	chain, err := c.GetOptionChain(context.Background(), "IBM")
	require.NoError(t, err)
	require.Len(t, chain, 2, "malformed rows are skipped")

	put := chain[0]
	assert.Equal(t, contracts.OptionPut, put.Type)
	assert.Equal(t, "160", put.Strike.String())
	assert.Equal(t, "2.1", put.Mid().String())
	require.NotNil(t, put.Delta)
	assert.Equal(t, -0.31, *put.Delta)
	assert.Equal(t, int64(3100), put.OpenInterest)
}

func TestNotices(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"rate limit note", `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, "rate limited"},
		{"invalid symbol", `{"Error Message":"Invalid API call."}`, "Invalid API call"},
		{"premium endpoint", `{"Information":"This is a premium endpoint."}`, "premium endpoint"},
		{"empty quote", `{"Global Quote":{}}`, contracts.ErrNoData.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			_, err := c.GetQuote(context.Background(), "IBM")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "alpha_vantage quote IBM")
		})
	}
}
