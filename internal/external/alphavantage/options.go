package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/orion/internal/contracts"
)

type optionsResponse struct {
	Message string        `json:"message"`
	Data    []optionQuote `json:"data"`
}

type optionQuote struct {
	ContractID        string `json:"contractID"`
	Symbol            string `json:"symbol"`
	Expiration        string `json:"expiration"`
	Strike            string `json:"strike"`
	Type              string `json:"type"`
	Last              string `json:"last"`
	Bid               string `json:"bid"`
	Ask               string `json:"ask"`
	Volume            string `json:"volume"`
	OpenInterest      string `json:"open_interest"`
	ImpliedVolatility string `json:"implied_volatility"`
	Delta             string `json:"delta"`
}

// GetOptionChain calls REALTIME_OPTIONS with greeks.
// Premium keys only; free keys get an Information notice.
func (c *Client) GetOptionChain(ctx context.Context, symbol string) ([]contracts.OptionContract, error) {
	var resp optionsResponse
	params := url.Values{"symbol": {symbol}, "require_greeks": {"true"}}
	if err := c.query(ctx, "REALTIME_OPTIONS", params, &resp); err != nil {
		return nil, c.wrap(contracts.OpOptionChain, symbol, err)
	}
	if len(resp.Data) == 0 {
		return nil, c.wrap(contracts.OpOptionChain, symbol, contracts.ErrNoData)
	}

	chain := make([]contracts.OptionContract, 0, len(resp.Data))
	for _, q := range resp.Data {
		oc, err := toContract(symbol, q)
		if err != nil {
			c.logger.WithError(err).WithField("contract", q.ContractID).Debug("Skipping malformed option row")
			continue
		}
		chain = append(chain, oc)
	}
	if len(chain) == 0 {
		return nil, c.wrap(contracts.OpOptionChain, symbol, contracts.ErrNoData)
	}
	return chain, nil
}

func toContract(symbol string, q optionQuote) (contracts.OptionContract, error) {
	exp, err := time.Parse("2006-01-02", q.Expiration)
	if err != nil {
		return contracts.OptionContract{}, fmt.Errorf("expiration %q: %w", q.Expiration, err)
	}

	var typ contracts.OptionType
	switch strings.ToLower(q.Type) {
	case "put":
		typ = contracts.OptionPut
	case "call":
		typ = contracts.OptionCall
	default:
		return contracts.OptionContract{}, fmt.Errorf("unknown option type %q", q.Type)
	}

	strike, err := decimal.NewFromString(q.Strike)
	if err != nil {
		return contracts.OptionContract{}, fmt.Errorf("strike %q: %w", q.Strike, err)
	}

	p := &numParser{}
	oc := contracts.OptionContract{
		Symbol:            q.ContractID,
		UnderlyingSymbol:  symbol,
		Strike:            strike,
		Expiration:        exp,
		Type:              typ,
		Bid:               decimalOrZero(q.Bid),
		Ask:               decimalOrZero(q.Ask),
		Last:              decimalOrZero(q.Last),
		Volume:            p.int(q.Volume),
		OpenInterest:      p.int(q.OpenInterest),
		ImpliedVolatility: optionalFloat(p, q.ImpliedVolatility),
		Delta:             optionalFloat(p, q.Delta),
	}
	if p.err != nil {
		return contracts.OptionContract{}, p.err
	}
	return oc, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func optionalFloat(p *numParser, s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := p.float(s)
	return &v
}
