package coinmarketcap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/coinmarketcap"
)

const quotesBody = `{
	"data": {
		"BTC": {"name": "Bitcoin", "symbol": "BTC", "quote": {"EUR": {"price": 45000.5, "percent_change_24h": 2.4}}},
		"ETH": {"name": "Ethereum", "symbol": "ETH", "quote": {"EUR": {"price": 3100.25, "percent_change_24h": -1.2}}}
	}
}`

func TestLatestQuotesSingleBatchedCall(t *testing.T) {
	var calls int
	var gotSymbols, gotConvert, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotSymbols = r.URL.Query().Get("symbol")
		gotConvert = r.URL.Query().Get("convert")
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		assert.Equal(t, "/v1/cryptocurrency/quotes/latest", r.URL.Path)
		_, _ = w.Write([]byte(quotesBody))
	}))
	defer srv.Close()

	client, err := coinmarketcap.New(coinmarketcap.Config{APIKey: "cmc-key", BaseURL: srv.URL})
	require.NoError(t, err)

	summaries, err := client.LatestQuotes(context.Background(), []string{"btc", "eth"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "symbols must be fetched in one batched request")
	assert.Equal(t, "BTC,ETH", gotSymbols, "symbols must be uppercased on the wire")
	assert.Equal(t, "EUR", gotConvert)
	assert.Equal(t, "cmc-key", gotKey)

	require.Len(t, summaries, 2)
	assert.Equal(t, "Bitcoin", summaries[0].Name)
	assert.Equal(t, "BTC", summaries[0].Symbol)
	assert.InDelta(t, 45000.5, summaries[0].PriceEUR, 0.001)
	assert.InDelta(t, 2.4, summaries[0].PercentChange24h, 0.001)
	assert.Equal(t, "ETH", summaries[1].Symbol)
}

func TestLatestQuotesPreservesRequestOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(quotesBody))
	}))
	defer srv.Close()

	client, err := coinmarketcap.New(coinmarketcap.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	summaries, err := client.LatestQuotes(context.Background(), []string{"ETH", "BTC"})
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, "ETH", summaries[0].Symbol)
	assert.Equal(t, "BTC", summaries[1].Symbol)
}

func TestLatestQuotesAllOrNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only BTC comes back even though two symbols were requested.
		_, _ = w.Write([]byte(`{"data":{"BTC":{"name":"Bitcoin","symbol":"BTC","quote":{"EUR":{"price":1,"percent_change_24h":0}}}}}`))
	}))
	defer srv.Close()

	client, err := coinmarketcap.New(coinmarketcap.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.LatestQuotes(context.Background(), []string{"BTC", "DOGE"})
	assert.ErrorIs(t, err, coinmarketcap.ErrRequestFailed)
	assert.Contains(t, err.Error(), "DOGE")
}

func TestLatestQuotesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := coinmarketcap.New(coinmarketcap.Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.LatestQuotes(context.Background(), []string{"BTC"})
	assert.ErrorIs(t, err, coinmarketcap.ErrRequestFailed)
}

func TestLatestQuotesRequiresSymbols(t *testing.T) {
	client, err := coinmarketcap.New(coinmarketcap.Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = client.LatestQuotes(context.Background(), nil)
	assert.ErrorIs(t, err, coinmarketcap.ErrNoSymbols)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := coinmarketcap.New(coinmarketcap.Config{})
	assert.ErrorIs(t, err, coinmarketcap.ErrMissingAPIKey)
}
