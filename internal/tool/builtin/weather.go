package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

const (
	defaultWeatherBaseURL = "https://wttr.in"
	defaultUserAgent      = "FoodieBot/1.0"
)

type wttrNamedValue struct {
	Value string `json:"value"`
}

type wttrCurrentCondition struct {
	TempC         string           `json:"temp_C"`
	FeelsLikeC    string           `json:"FeelsLikeC"`
	WeatherDesc   []wttrNamedValue `json:"weatherDesc"`
	Humidity      string           `json:"humidity"`
	WindspeedKmph string           `json:"windspeedKmph"`
	PrecipMM      string           `json:"precipMM"`
}

type wttrNearestArea struct {
	AreaName []wttrNamedValue `json:"areaName"`
	Region   []wttrNamedValue `json:"region"`
	Country  []wttrNamedValue `json:"country"`
}

type wttrWeatherDay struct {
	Date     string `json:"date"`
	MaxTempC string `json:"maxtempC"`
	MinTempC string `json:"mintempC"`
}

type wttrResponse struct {
	CurrentCondition []wttrCurrentCondition `json:"current_condition"`
	NearestArea      []wttrNearestArea      `json:"nearest_area"`
	Weather          []wttrWeatherDay       `json:"weather"`
}

func init() {
	toolcore.RegisterBuiltin("get_weather", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		client := options.HTTPClient
		if client == nil {
			timeout := options.Timeout
			if timeout <= 0 {
				timeout = toolcore.DefaultBuiltinWebTimeout
			}
			client = &http.Client{Timeout: timeout}
		}

		baseURL := strings.TrimSpace(options.WeatherBaseURL)
		if baseURL == "" {
			baseURL = defaultWeatherBaseURL
		}
		ua := strings.TrimSpace(options.UserAgent)
		if ua == "" {
			ua = defaultUserAgent
		}

		return &WeatherTool{
			Client:          client,
			BaseURL:         baseURL,
			UserAgent:       ua,
			DefaultLocation: options.DefaultLocation,
		}, nil
	})
}

// WeatherTool reports the current weather for a location so suggestions can
// lean towards warm soup on a rainy day or iced drinks on a hot one.
type WeatherTool struct {
	Client          *http.Client
	BaseURL         string
	UserAgent       string
	DefaultLocation string
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Cek cuaca saat ini di suatu lokasi untuk menyesuaikan rekomendasi makanan"
}

func (t *WeatherTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "weather.query", "http.get")
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Nama kota atau daerah (contoh: Jakarta, Bandung, Kemang)",
			},
		},
		"required": []string{"location"},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Location string `json:"location"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(args.Location)
	if location == "" {
		location = strings.TrimSpace(t.DefaultLocation)
	}
	if location == "" {
		return nil, toolcore.Fail("Lokasi cuaca belum diisi", fbErrors.ErrInvalidInput)
	}

	payload, err := t.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(payload.CurrentCondition) == 0 {
		return nil, toolcore.Fail(fmt.Sprintf("Data cuaca untuk %s tidak tersedia", location), fbErrors.ErrNotFound)
	}

	current := payload.CurrentCondition[0]
	data := map[string]interface{}{
		"query_location": location,
		"location":       resolveWeatherLocation(payload.NearestArea, location),
		"temperature_c":  strings.TrimSpace(current.TempC),
		"feels_like_c":   strings.TrimSpace(current.FeelsLikeC),
		"condition":      firstNamedValue(current.WeatherDesc),
		"humidity_pct":   strings.TrimSpace(current.Humidity),
		"wind_kmph":      strings.TrimSpace(current.WindspeedKmph),
		"precip_mm":      strings.TrimSpace(current.PrecipMM),
	}
	if len(payload.Weather) > 0 {
		today := payload.Weather[0]
		data["min_temp_c"] = strings.TrimSpace(today.MinTempC)
		data["max_temp_c"] = strings.TrimSpace(today.MaxTempC)
	}

	return toolcore.Reply(data, fmt.Sprintf("Cuaca di %s: %s, %s°C", data["location"], data["condition"], data["temperature_c"]))
}

func (t *WeatherTool) fetch(ctx context.Context, location string) (*wttrResponse, error) {
	endpoint, err := weatherEndpoint(t.BaseURL, location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.UserAgent)

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: toolcore.DefaultBuiltinWebTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %v: %w", err, fbErrors.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, toolcore.Fail(fmt.Sprintf("Lokasi %s tidak ditemukan", location), fbErrors.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fbErrors.Transient(fmt.Sprintf("weather request failed: %s", resp.Status))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("weather request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	var payload wttrResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	return &payload, nil
}

func weatherEndpoint(baseURL string, location string) (string, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultWeatherBaseURL
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid weather endpoint: %w", err)
	}
	if strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("invalid weather endpoint")
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + strings.TrimSpace(location)
	q := parsed.Query()
	q.Set("format", "j1")
	q.Set("lang", "id")
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

func resolveWeatherLocation(nearest []wttrNearestArea, fallback string) string {
	if len(nearest) == 0 {
		return strings.TrimSpace(fallback)
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{
		firstNamedValue(nearest[0].AreaName),
		firstNamedValue(nearest[0].Region),
		firstNamedValue(nearest[0].Country),
	} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(fallback)
	}
	return strings.Join(parts, ", ")
}

func firstNamedValue(values []wttrNamedValue) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
