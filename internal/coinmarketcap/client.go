// Package coinmarketcap fetches latest cryptocurrency quotes from the
// CoinMarketCap Pro API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrMissingAPIKey = errors.New("coinmarketcap: missing API key")
	ErrNoSymbols     = errors.New("coinmarketcap: at least one symbol is required")
	ErrRequestFailed = errors.New("coinmarketcap: request failed")
	ErrDecodeFailed  = errors.New("coinmarketcap: failed to decode response")
)

const defaultBaseURL = "https://pro-api.coinmarketcap.com"

// Config holds CoinMarketCap credentials.
type Config struct {
	APIKey  string `env:"COINMARKET_API_KEY,required"`
	BaseURL string `env:"COINMARKET_API_BASE_URL" envDefault:"https://pro-api.coinmarketcap.com"`
}

// Summary is the per-send snapshot of one currency's latest EUR quote.
type Summary struct {
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	PriceEUR         float64 `json:"price"`
	PercentChange24h float64 `json:"percent_change_24h"`
}

// Client is a stateless CoinMarketCap client. One batched request per call,
// no caching, no retry, all-or-nothing.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a CoinMarketCap client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    http.DefaultClient,
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client. Used in tests.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.http = client
	return c
}

// LatestQuotes fetches EUR quotes for all symbols in a single batched
// request. Symbols are uppercased on the wire; the returned slice follows
// the requested symbol order.
func (c *Client) LatestQuotes(ctx context.Context, symbols []string) ([]Summary, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	q := url.Values{}
	q.Set("symbol", strings.Join(upper, ","))
	q.Set("convert", "EUR")

	endpoint := c.baseURL + "/v1/cryptocurrency/quotes/latest?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d for symbols %s", ErrRequestFailed, resp.StatusCode, strings.Join(upper, ","))
	}

	var body quotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	// Map the keyed response back onto the requested order. A symbol the
	// provider didn't return fails the whole batch (all-or-nothing).
	summaries := make([]Summary, 0, len(upper))
	for _, symbol := range upper {
		raw, ok := body.Data[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no quote returned for symbol %s", ErrRequestFailed, symbol)
		}
		summaries = append(summaries, Summary{
			Name:             raw.Name,
			Symbol:           raw.Symbol,
			PriceEUR:         raw.Quote.EUR.Price,
			PercentChange24h: raw.Quote.EUR.PercentChange24h,
		})
	}

	return summaries, nil
}

type quotesResponse struct {
	Data map[string]rawCurrency `json:"data"`
}

type rawCurrency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quote  struct {
		EUR struct {
			Price            float64 `json:"price"`
			PercentChange24h float64 `json:"percent_change_24h"`
		} `json:"EUR"`
	} `json:"quote"`
}
