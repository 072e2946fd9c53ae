package yahoo

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/orion/internal/contracts"
)

// optionsResponse mirrors /v7/finance/options/{symbol}
type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Options          []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []optionQuote `json:"calls"`
				Puts           []optionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *apiErr `json:"error"`
	} `json:"optionChain"`
}

type optionQuote struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	Expiration        int64    `json:"expiration"`
}

// GetOptionChain walks the nearest expirations (up to MaxExpirations).
// Yahoo does not publish greeks, so Delta is always nil.
func (c *Client) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	first, err := c.fetchOptions(ctx, symbol, 0)
	if err != nil {
		return nil, c.wrap(contracts.OpOptionChain, symbol, err)
	}

	chain := first.toContracts(symbol)
	expirations := first.expirations()
	for i, exp := range expirations {
		if i == 0 {
			continue // already in the first response
		}
		if i >= c.MaxExpirations {
			break
		}

		page, err := c.fetchOptions(ctx, symbol, exp)
		if err != nil {
			// partial chains are still useful
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol":     symbol,
				"expiration": time.Unix(exp, 0).UTC().Format("2006-01-02"),
			}).Warn("Option expiration fetch failed")
			continue
		}
		chain = append(chain, page.toContracts(symbol)...)
	}

	if len(chain) == 0 {
		return nil, c.wrap(contracts.OpOptionChain, symbol, contracts.ErrNoData)
	}
	return chain, nil
}

type optionsPage struct {
	resp *optionsResponse
}

func (c *Client) fetchOptions(ctx context.Context, symbol string, expiration int64) (*optionsPage, error) {
	params := url.Values{}
	if expiration > 0 {
		params.Set("date", strconv.FormatInt(expiration, 10))
	}

	var resp optionsResponse
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/v7/finance/options/"+url.PathEscape(symbol), params), &resp); err != nil {
		return nil, err
	}
	if err := apiError(resp.OptionChain.Error); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, contracts.ErrNoData
	}
	return &optionsPage{resp: &resp}, nil
}

func (p *optionsPage) expirations() []int64 {
	return p.resp.OptionChain.Result[0].ExpirationDates
}

func (p *optionsPage) toContracts(symbol string) []contracts.OptionContract {
	var out []contracts.OptionContract
	for _, group := range p.resp.OptionChain.Result[0].Options {
		for _, q := range group.Puts {
			out = append(out, toContract(symbol, contracts.OptionPut, group.ExpirationDate, q))
		}
		for _, q := range group.Calls {
			out = append(out, toContract(symbol, contracts.OptionCall, group.ExpirationDate, q))
		}
	}
	return out
}

func toContract(symbol string, typ contracts.OptionType, groupExpiration int64, q optionQuote) contracts.OptionContract {
	exp := q.Expiration
	if exp == 0 {
		exp = groupExpiration
	}
	return contracts.OptionContract{
		Symbol:            q.ContractSymbol,
		UnderlyingSymbol:  symbol,
		Strike:            decimal.NewFromFloat(q.Strike),
		Expiration:        time.Unix(exp, 0).UTC(),
		Type:              typ,
		Bid:               decimal.NewFromFloat(q.Bid),
		Ask:               decimal.NewFromFloat(q.Ask),
		Last:              decimal.NewFromFloat(q.LastPrice),
		Volume:            q.Volume,
		OpenInterest:      q.OpenInterest,
		ImpliedVolatility: q.ImpliedVolatility,
	}
}
