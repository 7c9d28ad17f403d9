package tooling

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/store"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) RouteEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, float32(len(text)%7) + 1, 0.5}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Server.DataDir = t.TempDir()
	return cfg
}

func seededDB(t *testing.T, cfg *config.Config) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(cfg.Server.DataDir, "foodiebot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Seed(context.Background(), false); err != nil {
		t.Fatalf("seed db: %v", err)
	}
	return db
}

func TestBuildRegistersBuiltInTools(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.EmbeddingModel = ""

	components, err := Build(context.Background(), cfg, seededDB(t, cfg), nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if components == nil || components.Registry == nil || components.Runner == nil {
		t.Fatalf("Build() returned incomplete tooling components: %#v", components)
	}
	if components.Menu != nil {
		t.Errorf("expected no menu index without an embedding model")
	}

	required := []string{
		"add_review",
		"add_to_favorites",
		"calculate_calories",
		"get_favorites",
		"get_order_history",
		"get_restaurant_details",
		"get_weather",
		"recommend_by_mood",
		"remove_from_favorites",
		"save_order",
		"search_menu",
		"search_restaurants",
		"update_user_preferences",
	}
	for _, name := range required {
		if _, ok := components.Registry.Get(name); !ok {
			t.Fatalf("expected built-in tool %q to be registered", name)
		}
	}
	if got := len(components.Runner.Definitions()); got != len(required) {
		t.Errorf("Definitions() = %d tools, want %d", got, len(required))
	}
}

func TestBuildIndexesMenu(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.EmbeddingModel = "nomic-embed-text"
	db := seededDB(t, cfg)

	components, err := Build(context.Background(), cfg, db, stubEmbedder{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if components.Menu == nil {
		t.Fatal("expected menu index")
	}

	entries, err := db.ListMenuEntries(context.Background())
	if err != nil {
		t.Fatalf("list menu entries: %v", err)
	}
	if got := components.Menu.Count(); got != len(entries) {
		t.Errorf("Menu.Count() = %d, want %d", got, len(entries))
	}
}

func TestBuildSurvivesEmbeddingFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.EmbeddingModel = "nomic-embed-text"

	components, err := Build(context.Background(), cfg, seededDB(t, cfg), stubEmbedder{err: errors.New("connection refused")})
	if err != nil {
		t.Fatalf("Build() should not fail on embedding errors: %v", err)
	}
	if components.Menu == nil || components.Menu.Count() != 0 {
		t.Errorf("expected an empty menu index")
	}
}

func TestResolveBuiltinOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tools.Timeout = "3s"

	options, err := ResolveBuiltinOptions(cfg)
	if err != nil {
		t.Fatalf("ResolveBuiltinOptions() failed: %v", err)
	}
	if options.Timeout.String() != "3s" {
		t.Errorf("Timeout = %v, want 3s", options.Timeout)
	}
	if options.WeatherBaseURL != config.DefaultWeatherBaseURL {
		t.Errorf("WeatherBaseURL = %q", options.WeatherBaseURL)
	}
	if options.SearchRadiusKM != config.DefaultSearchRadiusKM {
		t.Errorf("SearchRadiusKM = %v", options.SearchRadiusKM)
	}
	if options.DefaultLocation != config.DefaultOrchestratorLocation {
		t.Errorf("DefaultLocation = %q", options.DefaultLocation)
	}
	if options.Geocoder == nil || options.HTTPClient == nil {
		t.Error("expected geocoder and http client")
	}

	cfg.Tools.Timeout = "soon"
	if _, err := ResolveBuiltinOptions(cfg); err == nil {
		t.Error("expected error for bad timeout")
	}
}
