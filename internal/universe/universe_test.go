package universe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

const sp500HTML = `<html><body>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="https://www.nyse.com/quote/XNYS:MMM">MMM</a></td><td>3M</td><td>Industrials</td></tr>
<tr><td><a href="https://www.nasdaq.com/market-activity/stocks/aapl">AAPL</a></td><td>Apple Inc.</td><td>Information Technology</td></tr>
<tr><td><a href="https://www.nyse.com/quote/XNYS:BRK.B">BRK.B</a>
</td><td>Berkshire Hathaway</td><td>Financials</td></tr>
</tbody>
</table>
<table id="changes"><tbody><tr><td>XYZ</td></tr></tbody></table>
</body></html>`

func newTestResolver(t *testing.T, status int, body string) *Resolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(httputil.New(&config.Config{}, logger.Nop()).DisableRetry(), logger.Nop())
	r.sp500URL = srv.URL
	return r
}

func TestParseSP500(t *testing.T) {
	syms, err := ParseSP500(strings.NewReader(sp500HTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AAPL", "BRK-B"}, syms)

	_, err = ParseSP500(strings.NewReader("<html><table id=\"other\"></table></html>"))
	assert.Error(t, err)
}

func TestResolve_Precedence(t *testing.T) {
	r := newTestResolver(t, http.StatusOK, sp500HTML)
	ctx := context.Background()

	tests := []struct {
		name     string
		explicit []string
		cfg      config.ScreeningConfig
		want     []string
	}{
		{"explicit wins", []string{"tsla, nvda"}, config.ScreeningConfig{CustomSymbols: []string{"IBM"}}, []string{"TSLA", "NVDA"}},
		{"custom symbols", nil, config.ScreeningConfig{CustomSymbols: []string{" ibm ", "ko"}, Universe: []string{"SP500"}}, []string{"IBM", "KO"}},
		{"default universe", nil, config.ScreeningConfig{}, DefaultSymbols},
		{"merged universes without duplicates", []string{" "}, config.ScreeningConfig{Universe: []string{"sp500", "DEFAULT"}},
			append([]string{"MMM", "AAPL", "BRK-B"}, without(DefaultSymbols, "AAPL")...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.explicit, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestResolver(t, http.StatusOK, sp500HTML).Resolve(ctx, nil, config.ScreeningConfig{Universe: []string{"NASDAQ100"}})
	assert.ErrorContains(t, err, "unknown universe")

	_, err = newTestResolver(t, http.StatusServiceUnavailable, "down").Resolve(ctx, nil, config.ScreeningConfig{Universe: []string{"SP500"}})
	assert.ErrorContains(t, err, "503")
}

func TestUniverse_DefaultIsACopy(t *testing.T) {
	r := newTestResolver(t, http.StatusOK, sp500HTML)
	syms, err := r.Universe(context.Background(), "default")
	require.NoError(t, err)

	syms[0] = "CHANGED"
	assert.Equal(t, "AAPL", DefaultSymbols[0])
}

func without(list []string, drop string) []string {
	var out []string
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
