package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherToolExecute_CurrentCondition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "j1", r.URL.Query().Get("format"))
		assert.Equal(t, "/Bandung", r.URL.Path)
		assert.Equal(t, "FoodieBot-test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, weatherFixtureJSON())
	}))
	defer server.Close()

	tool := &WeatherTool{
		Client:    server.Client(),
		BaseURL:   server.URL,
		UserAgent: "FoodieBot-test",
	}

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Bandung"}`))
	require.NoError(t, err)

	var resp struct {
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	assert.Equal(t, "Bandung", resp.Data["query_location"])
	assert.Equal(t, "Bandung, West Java, Indonesia", resp.Data["location"])
	assert.Equal(t, "Light rain", resp.Data["condition"])
	assert.Equal(t, "21", resp.Data["temperature_c"])
	assert.Equal(t, "19", resp.Data["min_temp_c"])
	assert.Contains(t, resp.Message, "Light rain")
}

func TestWeatherToolExecute_DefaultLocation(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, weatherFixtureJSON())
	}))
	defer server.Close()

	tool := &WeatherTool{Client: server.Client(), BaseURL: server.URL, DefaultLocation: "Jakarta"}
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"  "}`))
	require.NoError(t, err)
	assert.Equal(t, "/Jakarta", path)
}

func TestWeatherToolExecute_RequiresLocation(t *testing.T) {
	tool := &WeatherTool{}
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)

	var failure *toolcore.Failure
	require.True(t, errors.As(err, &failure))
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))
}

func TestWeatherToolExecute_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unknown location", status: http.StatusNotFound, want: fbErrors.ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: fbErrors.ErrTransient},
		{name: "server error", status: http.StatusBadGateway, want: fbErrors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			tool := &WeatherTool{Client: server.Client(), BaseURL: server.URL}
			_, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Atlantis"}`))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestWeatherEndpoint(t *testing.T) {
	endpoint, err := weatherEndpoint("https://wttr.in/", "Jakarta Selatan")
	require.NoError(t, err)
	assert.Equal(t, "https://wttr.in/Jakarta%20Selatan?format=j1&lang=id", endpoint)

	_, err = weatherEndpoint("not a url", "Jakarta")
	assert.Error(t, err)
}

func weatherFixtureJSON() string {
	return `{
  "current_condition": [
    {
      "temp_C": "21",
      "FeelsLikeC": "21",
      "weatherDesc": [{"value":"Light rain"}],
      "humidity": "88",
      "windspeedKmph": "7",
      "precipMM": "1.2"
    }
  ],
  "nearest_area": [
    {
      "areaName": [{"value":"Bandung"}],
      "region": [{"value":"West Java"}],
      "country": [{"value":"Indonesia"}]
    }
  ],
  "weather": [
    {"date": "2026-10-18", "maxtempC": "27", "mintempC": "19"}
  ]
}`
}
