package universe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

// Universe names accepted in SCREENING_UNIVERSE
const (
	NameDefault = "DEFAULT"
	NameSP500   = "SP500"
)

const sp500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// DefaultSymbols is the built-in large-cap list
var DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "JPM", "V", "WMT"}

// Resolver turns CLI flags and config into the list of symbols to screen
// ⭐ SSOT: 스크리닝 대상 종목 결정은 여기서만
type Resolver struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	sp500URL   string
}

// NewResolver creates a new universe resolver
func NewResolver(httpClient *httputil.Client, log *logger.Logger) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		logger:     log,
		sp500URL:   sp500URL,
	}
}

// Resolve picks symbols by precedence: explicit symbols, then configured
// custom symbols, then the configured universes merged in order.
func (r *Resolver) Resolve(ctx context.Context, explicit []string, cfg config.ScreeningConfig) ([]string, error) {
	if syms := clean(explicit); len(syms) > 0 {
		return syms, nil
	}
	if syms := clean(cfg.CustomSymbols); len(syms) > 0 {
		return syms, nil
	}

	names := cfg.Universe
	if len(names) == 0 {
		names = []string{NameDefault}
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		syms, err := r.Universe(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, s := range syms {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"universes": names,
		"symbols":   len(out),
	}).Info("Universe resolved")

	return out, nil
}

// Universe returns the symbols of one named universe
func (r *Resolver) Universe(ctx context.Context, name string) ([]string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case NameDefault:
		return append([]string(nil), DefaultSymbols...), nil
	case NameSP500, "S&P500", "SP_500":
		return r.FetchSP500(ctx)
	default:
		return nil, fmt.Errorf("unknown universe %q (want %s or %s)", name, NameDefault, NameSP500)
	}
}

// FetchSP500 scrapes the constituents table from Wikipedia
func (r *Resolver) FetchSP500(ctx context.Context) ([]string, error) {
	resp, err := r.httpClient.Get(ctx, r.sp500URL)
	if err != nil {
		return nil, fmt.Errorf("fetch S&P 500 constituents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch S&P 500 constituents: unexpected status code: %d", resp.StatusCode)
	}

	symbols, err := ParseSP500(resp.Body)
	if err != nil {
		return nil, err
	}

	r.logger.WithField("count", len(symbols)).Debug("Fetched S&P 500 constituents")
	return symbols, nil
}

// ParseSP500 extracts ticker symbols from the first column of the
// #constituents table. Class-share dots become dashes (BRK.B -> BRK-B)
// to match quote provider tickers.
func ParseSP500(body io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse S&P 500 page: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		return nil, fmt.Errorf("parse S&P 500 page: constituents table not found")
	}

	var symbols []string
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return // header row
		}
		sym := strings.ToUpper(strings.TrimSpace(cell.Text()))
		if sym == "" {
			return
		}
		symbols = append(symbols, strings.ReplaceAll(sym, ".", "-"))
	})

	if len(symbols) == 0 {
		return nil, fmt.Errorf("parse S&P 500 page: no symbols found")
	}
	return symbols, nil
}

func clean(symbols []string) []string {
	var out []string
	for _, s := range symbols {
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
