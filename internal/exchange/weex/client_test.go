package weex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/types"
)

var testCreds = Credentials{APIKey: "key", SecretKey: "secret", Passphrase: "pass"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL}, testCreds)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestSignKnownVector(t *testing.T) {
	// echo -n '1700000000000GET/capi/v2/account/assets' | openssl dgst -sha256 -hmac secret -binary | base64
	got := Sign("secret", "1700000000000", "get", "/capi/v2/account/assets", "")
	assert.Equal(t, "7bsSnQYeaAKPMd9ws9Ws9M0nXF2fHA+PKDqUmwmcMJA=", got)
	assert.NotEqual(t, got, Sign("secret", "1700000000001", "GET", "/capi/v2/account/assets", ""))
}

func TestQueryKeepsOrder(t *testing.T) {
	assert.Equal(t, "symbol=cmt_btcusdt&granularity=1h&limit=50", query("symbol", "cmt_btcusdt", "granularity", "1h", "limit", "50"))
	assert.Equal(t, "a=x+y", query("a", "x y", "dangling"))
}

func TestPrivateGetSignsPathAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capi/v2/account/assets", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("ACCESS-KEY"))
		assert.Equal(t, "pass", r.Header.Get("ACCESS-PASSPHRASE"))
		assert.Equal(t, "1700000000000", r.Header.Get("ACCESS-TIMESTAMP"))
		assert.Equal(t, "en-US", r.Header.Get("locale"))
		assert.Equal(t, Sign("secret", "1700000000000", "GET", "/capi/v2/account/assets", ""), r.Header.Get("ACCESS-SIGN"))
		_, _ = w.Write([]byte(`[{"coinName":"USDT","available":"950.5","equity":"1000"}]`))
	})

	assets, err := c.Assets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, types.Asset{Coin: "USDT", Available: 950.5, Equity: 1000}, assets[0])
}

func TestPublicEndpointsDecodeLeniently(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("ACCESS-SIGN"))
		switch r.URL.Path {
		case "/capi/v2/market/ticker":
			assert.Equal(t, "symbol=cmt_btcusdt", r.URL.RawQuery)
			_, _ = w.Write([]byte(`{"symbol":"cmt_btcusdt","last":"65000.5","high_24h":"66000","low_24h":64000,"volume_24h":"12.5","priceChangePercent":"0.012"}`))
		case "/capi/v2/market/depth":
			assert.Equal(t, "symbol=cmt_btcusdt&type=step0", r.URL.RawQuery)
			_, _ = w.Write([]byte(`{"bids":[["64999","1.2"]],"asks":[["65001","0.4"]]}`))
		case "/capi/v2/market/candles":
			assert.Equal(t, "symbol=cmt_btcusdt&granularity=1h&limit=2", r.URL.RawQuery)
			_, _ = w.Write([]byte(`[["1700003600000","2","3","1","2.5","10"],["1700000000000","1","2","0.5","1.5","5"]]`))
		case "/capi/v2/market/fundingRate":
			_, _ = w.Write([]byte(`[{"symbol":"cmt_btcusdt","fundingRate":"0.0001","fundingTime":"1700006400000"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	tk, err := c.Ticker(ctx, "cmt_btcusdt")
	require.NoError(t, err)
	assert.Equal(t, 65000.5, tk.Last)
	assert.Equal(t, 64000.0, tk.Low24h)
	assert.Equal(t, 0.012, tk.PriceChangePercent)

	d, err := c.Depth(ctx, "cmt_btcusdt")
	require.NoError(t, err)
	bid, ok := d.BestBid()
	assert.True(t, ok)
	assert.Equal(t, 64999.0, bid)

	cs, err := c.Candles(ctx, "cmt_btcusdt", "1h", 2)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, int64(1700000000000), cs[0].Ts)
	assert.Equal(t, 2.5, cs[1].Close)

	f, err := c.FundingRate(ctx, "cmt_btcusdt")
	require.NoError(t, err)
	assert.Equal(t, 0.0001, f.Rate)
	assert.Equal(t, int64(1700006400000), f.NextFundingTime)
}

func TestPlaceOrderBodyAndSignature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.Equal(t, Sign("secret", "1700000000000", "POST", "/capi/v2/order/placeOrder", string(raw)), r.Header.Get("ACCESS-SIGN"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "cmt_btcusdt", body["symbol"])
		assert.Equal(t, "0.0002", body["size"])
		assert.Equal(t, "3", body["type"])
		assert.Equal(t, "1", body["order_type"])
		assert.Equal(t, "1", body["match_price"])
		assert.Equal(t, "fenyr_multi_1", body["client_oid"])
		_, _ = w.Write([]byte(`{"client_oid":"fenyr_multi_1","order_id":"596471064624628269"}`))
	})

	resp, err := c.PlaceOrder(context.Background(), types.OrderReq{
		Symbol:    "cmt_btcusdt",
		Size:      decimal.RequireFromString("0.0002"),
		Side:      types.SideOpenShort,
		OrderType: types.OrderTypeMarket,
		ClientOID: "fenyr_multi_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "596471064624628269", resp.OrderID)
	assert.Equal(t, "SUBMITTED", resp.Status)
}

func TestPlaceOrderWithoutIDIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"client_oid":"x"}`))
	})
	resp, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "cmt_btcusdt", Size: decimal.NewFromInt(1), Side: types.SideOpenLong})
	require.NoError(t, err)
	assert.Empty(t, resp.OrderID)

	_, err = c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "cmt_btcusdt"})
	assert.Error(t, err)
}

func TestUploadSendsNumericOrderID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capi/v2/order/uploadAiLog", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Order Execution", body["stage"])
		assert.Equal(t, float64(12345), body["orderId"])
		assert.Len(t, body["explanation"], types.MaxExplanationLen)
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":"upload success"}`))
	})

	long := make([]byte, 1500)
	for i := range long {
		long[i] = 'x'
	}
	code, err := c.Upload(context.Background(), types.AILog{
		Stage:       "Order Execution",
		Model:       "gpt-5.2",
		Explanation: string(long),
		OrderID:     "12345",
	})
	require.NoError(t, err)
	assert.Equal(t, SuccessCode, code)
}

func TestErrorsSurface(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/capi/v2/order/uploadAiLog" {
			_, _ = w.Write([]byte(`{"code":"40012","msg":"invalid stage"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := c.Ticker(context.Background(), "cmt_btcusdt")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)

	code, err := c.Upload(context.Background(), types.AILog{Stage: "bad"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "40012", code)

	_, err = New(Config{}, Credentials{}).Positions(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("WEEX_API_KEY", "k")
	t.Setenv("WEEX_SECRET_KEY", "s")
	t.Setenv("WEEX_PASSPHRASE", "")
	assert.False(t, CredentialsFromEnv().Valid())
	t.Setenv("WEEX_PASSPHRASE", "p")
	assert.True(t, CredentialsFromEnv().Valid())
}
