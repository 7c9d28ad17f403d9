package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/geo"
	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "telegram:42"

func openSeededStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "foodiebot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Seed(context.Background(), false)
	require.NoError(t, err)
	return db
}

func restaurantByName(t *testing.T, db *store.DB, name string) int64 {
	t.Helper()
	all, err := db.ListRestaurants(context.Background())
	require.NoError(t, err)
	for _, r := range all {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("restaurant %q not seeded", name)
	return 0
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type reply struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func run(t *testing.T, tool toolcore.Tool, input string) reply {
	t.Helper()
	raw, err := tool.Execute(context.Background(), json.RawMessage(input))
	require.NoError(t, err)
	var r reply
	require.NoError(t, json.Unmarshal(raw, &r))
	return r
}

func runFailure(t *testing.T, tool toolcore.Tool, input string) *toolcore.Failure {
	t.Helper()
	_, err := tool.Execute(context.Background(), json.RawMessage(input))
	require.Error(t, err)
	var failure *toolcore.Failure
	require.True(t, errors.As(err, &failure), "expected Failure, got %v", err)
	return failure
}

func restaurantNames(t *testing.T, data json.RawMessage) []string {
	t.Helper()
	var rows []restaurantSummary
	require.NoError(t, json.Unmarshal(data, &rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names
}

type stubGeocoder struct {
	point geo.Point
	ok    bool
	err   error
}

func (g stubGeocoder) Geocode(ctx context.Context, query string) (geo.Point, bool, error) {
	return g.point, g.ok, g.err
}

func TestSearchRestaurants_BudgetFilter(t *testing.T) {
	tool := &SearchRestaurantsTool{Store: openSeededStore(t), RadiusKM: 5}

	r := run(t, tool, `{"budget": 30000}`)
	assert.Equal(t, "Ditemukan 1 restoran", r.Message)
	assert.Equal(t, []string{"Warteg Bahari"}, restaurantNames(t, r.Data))
}

func TestSearchRestaurants_NearestFirstWhenGeocoded(t *testing.T) {
	tool := &SearchRestaurantsTool{
		Store:    openSeededStore(t),
		Geocoder: stubGeocoder{point: geo.Point{Lat: -6.2607, Lon: 106.8137}, ok: true},
		RadiusKM: 5,
	}

	r := run(t, tool, `{"location": "Kemang"}`)
	names := restaurantNames(t, r.Data)
	require.NotEmpty(t, names)
	assert.Equal(t, "Geprek Bensu", names[0])
	assert.NotContains(t, names, "Bakso Boedjangan")

	var rows []restaurantSummary
	require.NoError(t, json.Unmarshal(r.Data, &rows))
	require.NotNil(t, rows[0].DistanceKM)
	assert.Less(t, *rows[0].DistanceKM, 0.1)
}

func TestSearchRestaurants_TextMatchWhenGeocodingFails(t *testing.T) {
	tool := &SearchRestaurantsTool{
		Store:    openSeededStore(t),
		Geocoder: stubGeocoder{err: fbErrors.Transient("nominatim down")},
		RadiusKM: 5,
	}

	r := run(t, tool, `{"location": "Kemang"}`)
	assert.Equal(t, []string{"Le Petit Bistro", "Geprek Bensu"}, restaurantNames(t, r.Data))
}

func TestSearchRestaurants_NoStore(t *testing.T) {
	failure := runFailure(t, &SearchRestaurantsTool{}, `{}`)
	assert.Equal(t, msgStoreUnavailable, failure.Message)
}

func TestRestaurantDetails(t *testing.T) {
	db := openSeededStore(t)
	tool := &RestaurantDetailsTool{Store: db}

	r := run(t, tool, `{"restaurant_id": `+itoa(restaurantByName(t, db, "Bakso Boedjangan"))+`}`)
	var detail store.RestaurantDetail
	require.NoError(t, json.Unmarshal(r.Data, &detail))
	assert.Equal(t, "Bakso Boedjangan", detail.Name)
	assert.Len(t, detail.Menu, 4)

	failure := runFailure(t, tool, `{"restaurant_id": 9999}`)
	assert.Equal(t, "Restoran tidak ditemukan", failure.Message)
	assert.True(t, errors.Is(failure, fbErrors.ErrNotFound))
}

func TestRecommendByMood(t *testing.T) {
	tool := &RecommendByMoodTool{Store: openSeededStore(t)}

	r := run(t, tool, `{"mood": "romantic"}`)
	assert.Equal(t, "Rekomendasi untuk mood romantic", r.Message)
	names := restaurantNames(t, r.Data)
	require.NotEmpty(t, names)
	assert.Equal(t, "Le Petit Bistro", names[0])
	assert.LessOrEqual(t, len(names), store.DefaultRecommendLimit)

	r = run(t, tool, `{"mood": "Romantic", "budget": 100000}`)
	names = restaurantNames(t, r.Data)
	require.NotEmpty(t, names)
	assert.Equal(t, "Pasta de Waraku", names[0])
	assert.NotContains(t, names, "Le Petit Bistro")

	failure := runFailure(t, tool, `{"mood": "angry"}`)
	assert.True(t, errors.Is(failure, fbErrors.ErrInvalidInput))
}

func TestFavorites_AddIsIdempotent(t *testing.T) {
	db := openSeededStore(t)
	rid := itoa(restaurantByName(t, db, "Geprek Bensu"))
	args := `{"user_id": "` + testUser + `", "restaurant_id": ` + rid + `}`

	add := &AddFavoriteTool{Store: db}
	assert.Equal(t, "Restoran berhasil ditambahkan ke favorit!", run(t, add, args).Message)
	assert.Equal(t, "Restoran sudah ada di daftar favorit", run(t, add, args).Message)

	list := run(t, &GetFavoritesTool{Store: db}, `{"user_id": "`+testUser+`"}`)
	assert.Equal(t, "Kamu punya 1 restoran favorit", list.Message)
	assert.Equal(t, []string{"Geprek Bensu"}, restaurantNames(t, list.Data))

	remove := &RemoveFavoriteTool{Store: db}
	assert.Equal(t, "Restoran berhasil dihapus dari favorit", run(t, remove, args).Message)
	assert.Equal(t, "Restoran tidak ada di daftar favorit", run(t, remove, args).Message)

	failure := runFailure(t, add, `{"user_id": "`+testUser+`", "restaurant_id": 9999}`)
	assert.Equal(t, "Restoran tidak ditemukan", failure.Message)
}

func TestFavorites_RequireUser(t *testing.T) {
	failure := runFailure(t, &GetFavoritesTool{Store: openSeededStore(t)}, `{"user_id": "  "}`)
	assert.True(t, errors.Is(failure, fbErrors.ErrInvalidInput))
}

func TestOrders_SaveHistoryReview(t *testing.T) {
	db := openSeededStore(t)
	rid := itoa(restaurantByName(t, db, "Warteg Bahari"))

	saved := run(t, &SaveOrderTool{Store: db}, `{"user_id": "`+testUser+`", "restaurant_id": `+rid+`, "menu_items": ["Nasi Rames", "Es Teh"], "total_price": 25000, "mood": "hungry"}`)
	assert.Equal(t, "Pesanan berhasil disimpan!", saved.Message)
	var ref struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(saved.Data, &ref))
	require.NotZero(t, ref.OrderID)

	history := run(t, &OrderHistoryTool{Store: db}, `{"user_id": "`+testUser+`"}`)
	assert.Equal(t, "Riwayat 1 pesanan terakhir", history.Message)
	var orders []store.Order
	require.NoError(t, json.Unmarshal(history.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, []string{"Nasi Rames", "Es Teh"}, orders[0].MenuItems)
	assert.Equal(t, "hungry", orders[0].Mood)

	review := &AddReviewTool{Store: db}
	r := run(t, review, `{"user_id": "`+testUser+`", "order_id": `+itoa(ref.OrderID)+`, "rating": 5, "review": "mantap"}`)
	assert.Contains(t, r.Message, "ulasan berhasil disimpan")

	failure := runFailure(t, review, `{"user_id": "telegram:7", "order_id": `+itoa(ref.OrderID)+`, "rating": 4}`)
	assert.Equal(t, "Pesanan tidak ditemukan", failure.Message)

	failure = runFailure(t, review, `{"user_id": "`+testUser+`", "order_id": `+itoa(ref.OrderID)+`, "rating": 9}`)
	assert.True(t, errors.Is(failure, fbErrors.ErrInvalidInput))
}

func TestSaveOrder_UnknownRestaurant(t *testing.T) {
	failure := runFailure(t, &SaveOrderTool{Store: openSeededStore(t)}, `{"user_id": "`+testUser+`", "restaurant_id": 9999, "menu_items": ["x"], "total_price": 1}`)
	assert.Equal(t, "Restoran tidak ditemukan", failure.Message)
}

func TestUpdatePreferences_OnlySetFields(t *testing.T) {
	db := openSeededStore(t)
	tool := &UpdatePreferencesTool{Store: db}

	r := run(t, tool, `{"user_id": "`+testUser+`", "default_location": "Kemang"}`)
	assert.Equal(t, "Preferensi berhasil diupdate!", r.Message)

	r = run(t, tool, `{"user_id": "`+testUser+`", "default_budget": 30000, "default_location": ""}`)
	var prefs map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Data, &prefs))
	assert.EqualValues(t, 30000, prefs["default_budget"])
	assert.Equal(t, "Kemang", prefs["default_location"])
}

func TestCalculateCalories(t *testing.T) {
	tool := &CaloriesTool{}

	r := run(t, tool, `{"food": "Nasi Goreng Seafood", "portion": 2}`)
	var out struct {
		Food      string `json:"food"`
		TotalKCal int    `json:"total_kcal"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &out))
	assert.Equal(t, "nasi goreng", out.Food)
	assert.Equal(t, 534, out.TotalKCal)

	r = run(t, tool, `{"food": "bakso"}`)
	require.NoError(t, json.Unmarshal(r.Data, &out))
	assert.Equal(t, 218, out.TotalKCal)

	failure := runFailure(t, tool, `{"food": "rujak cingur"}`)
	assert.True(t, errors.Is(failure, fbErrors.ErrNotFound))
}

func TestLookupDish_PrefersLongestName(t *testing.T) {
	name, _, ok := lookupDish("  Sate   KAMBING muda ")
	require.True(t, ok)
	assert.Equal(t, "sate kambing", name)

	name, _, ok = lookupDish("nasi pecel lele")
	require.True(t, ok)
	assert.Equal(t, "pecel lele", name)
}

var menuVocabulary = []string{"bakso", "kopi", "pizza", "sushi", "goreng", "teh"}

func menuEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(menuVocabulary)+1)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		for i, v := range menuVocabulary {
			if w == v {
				vec[i]++
			}
		}
	}
	vec[len(menuVocabulary)] = 0.01
	return vec, nil
}

func TestSearchMenu_SemanticBuildsIndexLazily(t *testing.T) {
	db := openSeededStore(t)
	index, err := store.NewMenuIndex("", menuEmbedding)
	require.NoError(t, err)
	require.Zero(t, index.Count())

	r := run(t, &SearchMenuTool{Store: db, Index: index}, `{"query": "bakso", "limit": 2}`)
	var hits []store.MenuHit
	require.NoError(t, json.Unmarshal(r.Data, &hits))
	require.Len(t, hits, 2)
	assert.Contains(t, strings.ToLower(hits[0].Name+" "+hits[0].Description), "bakso")
	assert.NotZero(t, index.Count())
}

func TestSearchMenu_KeywordFallbackWithoutEmbedding(t *testing.T) {
	db := openSeededStore(t)
	index, err := store.NewMenuIndex("", nil)
	require.NoError(t, err)

	r := run(t, &SearchMenuTool{Store: db, Index: index}, `{"query": "bakso urat"}`)
	var hits []store.MenuHit
	require.NoError(t, json.Unmarshal(r.Data, &hits))
	require.NotEmpty(t, hits)
	assert.Equal(t, "Bakso Urat", hits[0].Name)
	assert.Equal(t, "Bakso Boedjangan", hits[0].RestaurantName)
	assert.InDelta(t, 1.0, hits[0].Score, 0.001)
}

func TestSearchMenu_Unavailable(t *testing.T) {
	failure := runFailure(t, &SearchMenuTool{}, `{"query": "kopi"}`)
	assert.True(t, errors.Is(failure, fbErrors.ErrInternal))
}
