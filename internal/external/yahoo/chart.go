package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/orion/internal/contracts"
)

type apiErr struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// chartResponse mirrors /v8/finance/chart/{symbol}
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiErr       `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string  `json:"symbol"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		PreviousClose        float64 `json:"previousClose"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketTime    int64   `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/v8/finance/chart/"+url.PathEscape(symbol), params), &resp); err != nil {
		return nil, err
	}
	if err := apiError(resp.Chart.Error); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, contracts.ErrNoData
	}
	return &resp.Chart.Result[0], nil
}

// GetQuote returns the latest quote from the chart meta block
func (c *Client) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	res, err := c.fetchChart(ctx, symbol, url.Values{"range": {"5d"}, "interval": {"1d"}})
	if err != nil {
		return nil, c.wrap(contracts.OpQuote, symbol, err)
	}

	meta := res.Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, c.wrap(contracts.OpQuote, symbol, contracts.ErrNoData)
	}

	prev := previousClose(res)
	q := &contracts.Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		Volume:        meta.RegularMarketVolume,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		PreviousClose: prev,
		Timestamp:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if bars := toBars(res); len(bars) > 0 {
		q.Open = bars[len(bars)-1].Open
	}
	if prev > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

// previousClose prefers the second to last daily close; chartPreviousClose
// is the close before the whole range
func previousClose(res *chartResult) float64 {
	bars := toBars(res)
	if len(bars) >= 2 {
		return bars[len(bars)-2].Close
	}
	if res.Meta.PreviousClose > 0 {
		return res.Meta.PreviousClose
	}
	return res.Meta.ChartPreviousClose
}

// GetHistorical returns the last lookbackDays daily bars, oldest first
func (c *Client) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	if lookbackDays <= 0 {
		return nil, c.wrap(contracts.OpHistorical, symbol, fmt.Errorf("lookback must be positive, got %d", lookbackDays))
	}

	// trading days -> calendar days, with slack for holidays
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(lookbackDays*7/5 + 10))

	res, err := c.fetchChart(ctx, symbol, url.Values{
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.Unix(), 10)},
		"interval": {"1d"},
	})
	if err != nil {
		return nil, c.wrap(contracts.OpHistorical, symbol, err)
	}

	bars := toBars(res)
	if len(bars) == 0 {
		return nil, c.wrap(contracts.OpHistorical, symbol, contracts.ErrNoData)
	}
	if len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(bars),
	}).Debug("Fetched daily bars")

	return bars, nil
}

// toBars zips the column arrays, skipping rows with a missing close
func toBars(res *chartResult) []contracts.Bar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]

	bars := make([]contracts.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := at(q.Close, i)
		if closePx == 0 {
			continue
		}
		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		bars = append(bars, contracts.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  closePx,
			Volume: volume,
		})
	}
	return bars
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
