package weatherapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/weatherapi"
)

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Berlin", expected: "Berlin"},
		{input: "Köln", expected: "Koeln"},
		{input: "München", expected: "Muenchen"},
		{input: "Gießen", expected: "Giessen"},
		{input: "Lübeck", expected: "Luebeck"},
		{input: "Sömmerda", expected: "Soemmerda"},
		{input: "Málaga", expected: "Malaga"},
		{input: "São Paulo", expected: "Sao Paulo"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, weatherapi.NormalizeCity(tt.input))
		})
	}
}

func TestCurrent(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "no", r.URL.Query().Get("aqi"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"location": {"name": "Berlin"},
			"current": {"temp_c": 22.0, "condition": {"text": "Sunny", "icon": "//cdn.weatherapi.com/sun.png"}}
		}`))
	}))
	defer srv.Close()

	client, err := weatherapi.New(weatherapi.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	summary, err := client.Current(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, "Berlin", gotQuery)
	assert.Equal(t, "Berlin", summary.City)
	assert.InDelta(t, 22.0, summary.TemperatureC, 0.001)
	assert.Equal(t, "Sunny", summary.Condition)
	assert.Equal(t, "https://cdn.weatherapi.com/sun.png", summary.IconURL)
}

func TestCurrentNormalizesCityOnWire(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"location":{"name":"Munich"},"current":{"temp_c":10,"condition":{"text":"Cloudy","icon":"//x"}}}`))
	}))
	defer srv.Close()

	client, err := weatherapi.New(weatherapi.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Current(context.Background(), "München")
	require.NoError(t, err)
	assert.Equal(t, "Muenchen", gotQuery)
}

func TestCurrentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no matching location found", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := weatherapi.New(weatherapi.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Current(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weatherapi.ErrRequestFailed)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestCurrentMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client, err := weatherapi.New(weatherapi.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Current(context.Background(), "Berlin")
	assert.ErrorIs(t, err, weatherapi.ErrDecodeFailed)
}

func TestCurrentEmptyCity(t *testing.T) {
	client, err := weatherapi.New(weatherapi.Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Current(context.Background(), "  ")
	assert.ErrorIs(t, err, weatherapi.ErrEmptyCity)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := weatherapi.New(weatherapi.Config{})
	assert.ErrorIs(t, err, weatherapi.ErrMissingAPIKey)
}
