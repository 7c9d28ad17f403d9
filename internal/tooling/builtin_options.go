package tooling

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/geo"
	"github.com/harunnryd/foodiebot/internal/tool"
)

// ResolveBuiltinOptions turns the tools section into the options the built-in
// factories read. Store and Menu are filled in by Build.
func ResolveBuiltinOptions(cfg *config.Config) (tool.BuiltinOptions, error) {
	if cfg == nil {
		return tool.BuiltinOptions{}, fmt.Errorf("config cannot be nil")
	}

	timeout, err := config.DurationOrDefault(cfg.Tools.Timeout, config.DefaultToolsTimeout)
	if err != nil {
		return tool.BuiltinOptions{}, fmt.Errorf("parse tools.timeout: %w", err)
	}
	weatherBaseURL := strings.TrimSpace(cfg.Tools.WeatherBaseURL)
	if weatherBaseURL == "" {
		weatherBaseURL = config.DefaultWeatherBaseURL
	}
	geocodeBaseURL := strings.TrimSpace(cfg.Tools.GeocodeBaseURL)
	if geocodeBaseURL == "" {
		geocodeBaseURL = config.DefaultGeocodeBaseURL
	}
	userAgent := strings.TrimSpace(cfg.Tools.UserAgent)
	if userAgent == "" {
		userAgent = config.DefaultToolsUserAgent
	}
	radius := cfg.Tools.SearchRadiusKM
	if radius <= 0 {
		radius = config.DefaultSearchRadiusKM
	}
	location := strings.TrimSpace(cfg.Orchestrator.DefaultLocation)
	if location == "" {
		location = config.DefaultOrchestratorLocation
	}

	return tool.BuiltinOptions{
		Geocoder:        geo.NewClient(geocodeBaseURL, userAgent, timeout),
		HTTPClient:      &http.Client{Timeout: timeout},
		WeatherBaseURL:  weatherBaseURL,
		UserAgent:       userAgent,
		SearchRadiusKM:  radius,
		DefaultLocation: location,
		Timeout:         timeout,
	}, nil
}
