// Package weatherapi fetches current conditions from weatherapi.com.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrMissingAPIKey = errors.New("weatherapi: missing API key")
	ErrEmptyCity     = errors.New("weatherapi: city is required")
	ErrRequestFailed = errors.New("weatherapi: request failed")
	ErrDecodeFailed  = errors.New("weatherapi: failed to decode response")
)

const defaultBaseURL = "https://api.weatherapi.com/v1"

// Config holds weatherapi.com credentials.
type Config struct {
	APIKey  string `env:"WEATHER_API_KEY,required"`
	BaseURL string `env:"WEATHER_API_BASE_URL" envDefault:"https://api.weatherapi.com/v1"`
}

// Summary is the per-send snapshot of current conditions for one city.
type Summary struct {
	City         string  `json:"city"`
	TemperatureC float64 `json:"temperature"`
	Condition    string  `json:"condition"`
	IconURL      string  `json:"icon"`
}

// Client is a stateless weatherapi.com client. One request per call, no
// caching, no retry.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a weather client.
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

// Current fetches current conditions for a city. The city name is
// transliterated (German umlauts and ß) and stripped of remaining
// diacritics before it goes on the wire, since the upstream API handles
// ASCII queries most reliably.
func (c *Client) Current(ctx context.Context, city string) (*Summary, error) {
	if strings.TrimSpace(city) == "" {
		return nil, ErrEmptyCity
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", NormalizeCity(city))
	q.Set("aqi", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/current.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: failed to fetch weather data for city %q: status %d", ErrRequestFailed, city, resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	return &Summary{
		City:         body.Location.Name,
		TemperatureC: body.Current.TempC,
		Condition:    body.Current.Condition.Text,
		IconURL:      "https:" + body.Current.Condition.Icon,
	}, nil
}

// germanReplacer transliterates characters the generic diacritic stripper
// would fold incorrectly for German city names (ö must become "oe", not "o").
var germanReplacer = strings.NewReplacer(
	"ö", "oe", "Ö", "Oe",
	"ä", "ae", "Ä", "Ae",
	"ü", "ue", "Ü", "Ue",
	"ß", "ss",
)

// NormalizeCity transliterates German special characters and strips all
// remaining combining marks (é→e, š→s) from a city name.
func NormalizeCity(city string) string {
	city = germanReplacer.Replace(city)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, city)
	if err != nil {
		return city
	}
	return normalized
}

type currentResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
		} `json:"condition"`
	} `json:"current"`
}
