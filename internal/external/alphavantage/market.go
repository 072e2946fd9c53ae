package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/orion/internal/contracts"
)

// compactLimit is how many bars outputsize=compact returns
const compactLimit = 100

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type dailyResponse struct {
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

// GetQuote calls GLOBAL_QUOTE
func (c *Client) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	var resp globalQuoteResponse
	if err := c.query(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, c.wrap(contracts.OpQuote, symbol, err)
	}

	g := resp.GlobalQuote
	if g.Price == "" {
		return nil, c.wrap(contracts.OpQuote, symbol, contracts.ErrNoData)
	}

	p := &numParser{}
	q := &contracts.Quote{
		Symbol:        symbol,
		Open:          p.float(g.Open),
		High:          p.float(g.High),
		Low:           p.float(g.Low),
		Price:         p.float(g.Price),
		Volume:        p.int(g.Volume),
		PreviousClose: p.float(g.PreviousClose),
		Change:        p.float(g.Change),
		ChangePercent: p.float(strings.TrimSuffix(g.ChangePercent, "%")),
	}
	if p.err != nil {
		return nil, c.wrap(contracts.OpQuote, symbol, p.err)
	}
	if ts, err := time.Parse("2006-01-02", g.LatestTradingDay); err == nil {
		q.Timestamp = ts
	}
	return q, nil
}

// GetHistorical calls TIME_SERIES_DAILY and returns the last lookbackDays bars
func (c *Client) GetHistorical(ctx context.Context, symbol string, lookbackDays int) ([]contracts.Bar, error) {
	if lookbackDays <= 0 {
		return nil, c.wrap(contracts.OpHistorical, symbol, fmt.Errorf("lookback must be positive, got %d", lookbackDays))
	}

	size := "compact"
	if lookbackDays > compactLimit {
		size = "full"
	}

	var resp dailyResponse
	if err := c.query(ctx, "TIME_SERIES_DAILY", url.Values{"symbol": {symbol}, "outputsize": {size}}, &resp); err != nil {
		return nil, c.wrap(contracts.OpHistorical, symbol, err)
	}
	if len(resp.Series) == 0 {
		return nil, c.wrap(contracts.OpHistorical, symbol, contracts.ErrNoData)
	}

	bars := make([]contracts.Bar, 0, len(resp.Series))
	p := &numParser{}
	for day, row := range resp.Series {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, c.wrap(contracts.OpHistorical, symbol, fmt.Errorf("parse date %q: %w", day, err))
		}
		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   p.float(row.Open),
			High:   p.float(row.High),
			Low:    p.float(row.Low),
			Close:  p.float(row.Close),
			Volume: p.int(row.Volume),
		})
	}
	if p.err != nil {
		return nil, c.wrap(contracts.OpHistorical, symbol, p.err)
	}

	// the API returns a map keyed by date
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	return bars, nil
}

// numParser keeps the first parse error so rows can be built inline
type numParser struct {
	err error
}

func (p *numParser) float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse number %q: %w", s, err)
	}
	return v
}

func (p *numParser) int(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse integer %q: %w", s, err)
	}
	return v
}
