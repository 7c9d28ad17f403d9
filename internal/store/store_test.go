package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "foodiebot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	n, err := db.Seed(context.Background(), false)
	require.NoError(t, err)
	require.Greater(t, n, 0)
	return db
}

func restaurantID(t *testing.T, db *DB, name string) int64 {
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

func TestOpen_MigratesOnceAndReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "foodiebot.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	v, err = db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))
}

func TestSeed_SkipsWhenPresent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	samples, err := SampleRestaurants()
	require.NoError(t, err)

	count, err := db.CountRestaurants(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(samples), count)

	n, err := db.Seed(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	// force tops up without duplicating what is already there
	n, err = db.Seed(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, n)
	count, err = db.CountRestaurants(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(samples), count)
}

func TestSearchRestaurants_Filters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cheap, err := db.SearchRestaurants(ctx, RestaurantQuery{Budget: 40000})
	require.NoError(t, err)
	require.NotEmpty(t, cheap)
	for _, r := range cheap {
		assert.LessOrEqual(t, r.AvgPrice, 40000)
	}
	for i := 1; i < len(cheap); i++ {
		assert.GreaterOrEqual(t, cheap[i-1].Rating, cheap[i].Rating)
	}

	japanese, err := db.SearchRestaurants(ctx, RestaurantQuery{CuisineType: "japan"})
	require.NoError(t, err)
	require.Len(t, japanese, 1)
	assert.Equal(t, "Sushi Tei", japanese[0].Name)

	kemang, err := db.SearchRestaurants(ctx, RestaurantQuery{Location: "kemang"})
	require.NoError(t, err)
	require.Len(t, kemang, 2)
	assert.Equal(t, "Le Petit Bistro", kemang[0].Name)

	limited, err := db.SearchRestaurants(ctx, RestaurantQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestSearchRestaurants_NearOrdersByDistance(t *testing.T) {
	db := openTestDB(t)

	kemang := geo.Point{Lat: -6.2607, Lon: 106.8137}
	rows, err := db.SearchRestaurants(context.Background(), RestaurantQuery{Near: &kemang, RadiusKM: 5})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	assert.Equal(t, "Geprek Bensu", rows[0].Name)
	for i, r := range rows {
		require.NotNil(t, r.DistanceKM)
		assert.LessOrEqual(t, *r.DistanceKM, 5.0)
		if i > 0 {
			assert.GreaterOrEqual(t, *r.DistanceKM, *rows[i-1].DistanceKM)
		}
		assert.NotEqual(t, "Sushi Tei", r.Name)
	}
}

func TestGetRestaurantDetail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	detail, err := db.GetRestaurantDetail(ctx, restaurantID(t, db, "Warung Tekko"))
	require.NoError(t, err)
	assert.Equal(t, "Kebayoran Baru, Jakarta Selatan", detail.Location)
	assert.Len(t, detail.Menu, 4)

	_, err = db.GetRestaurantDetail(ctx, 9999)
	assert.True(t, errors.Is(err, fbErrors.ErrNotFound))
}

func TestRecommendByCategories(t *testing.T) {
	db := openTestDB(t)

	rows, err := db.RecommendByCategories(context.Background(), []string{"fine dining", "italian", "french"}, 0, "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Le Petit Bistro", rows[0].Name)

	budget, err := db.RecommendByCategories(context.Background(), []string{"fine dining", "italian", "french"}, 100000, "", 5)
	require.NoError(t, err)
	for _, r := range budget {
		assert.LessOrEqual(t, r.AvgPrice, 100000)
	}
}

func TestFavorites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	id := restaurantID(t, db, "Geprek Bensu")

	added, err := db.AddFavorite(ctx, "telegram:1", id)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = db.AddFavorite(ctx, "telegram:1", id)
	require.NoError(t, err)
	assert.False(t, added)

	favs, err := db.ListFavorites(ctx, "telegram:1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Geprek Bensu", favs[0].Name)
	assert.False(t, favs[0].AddedAt.IsZero())

	other, err := db.ListFavorites(ctx, "telegram:2")
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := db.RemoveFavorite(ctx, "telegram:1", id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.RemoveFavorite(ctx, "telegram:1", id)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = db.AddFavorite(ctx, "telegram:1", 9999)
	assert.True(t, errors.Is(err, fbErrors.ErrNotFound))
}

func TestOrdersAndReviews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	id := restaurantID(t, db, "Bakso Boedjangan")

	first, err := db.SaveOrder(ctx, NewOrder{ExternalID: "slack:U1", RestaurantID: id, MenuItems: []string{"Bakso Urat"}, TotalPrice: 38000, Mood: "hungry"})
	require.NoError(t, err)
	second, err := db.SaveOrder(ctx, NewOrder{ExternalID: "slack:U1", RestaurantID: id, MenuItems: []string{"Bakso Jumbo", "Es Teh Jumbo"}, TotalPrice: 55000})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	orders, err := db.ListOrders(ctx, "slack:U1", 5)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, []string{"Bakso Jumbo", "Es Teh Jumbo"}, orders[0].MenuItems)
	assert.Equal(t, "Bakso Boedjangan", orders[0].Restaurant)
	assert.Nil(t, orders[0].Rating)

	limited, err := db.ListOrders(ctx, "slack:U1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	err = db.AddReview(ctx, "slack:U1", first, 6, "")
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))

	err = db.AddReview(ctx, "slack:U2", first, 5, "mantap")
	assert.True(t, errors.Is(err, fbErrors.ErrNotFound))

	require.NoError(t, db.AddReview(ctx, "slack:U1", first, 5, "mantap"))
	orders, err = db.ListOrders(ctx, "slack:U1", 5)
	require.NoError(t, err)
	require.NotNil(t, orders[1].Rating)
	assert.Equal(t, 5, *orders[1].Rating)
	assert.Equal(t, "mantap", orders[1].Review)

	_, err = db.SaveOrder(ctx, NewOrder{ExternalID: "slack:U1", RestaurantID: id, TotalPrice: 1})
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))
}

func TestUsersAndPreferences(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.GetOrCreateUser(ctx, "telegram:7", "budi")
	require.NoError(t, err)
	assert.Equal(t, 50000, u.DefaultBudget)
	assert.Equal(t, "budi", u.Username)

	again, err := db.GetOrCreateUser(ctx, "telegram:7", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "budi", again.Username)

	loc := "Kemang"
	u, err = db.UpdatePreferences(ctx, "telegram:7", nil, &loc)
	require.NoError(t, err)
	assert.Equal(t, "Kemang", u.DefaultLocation)
	assert.Equal(t, 50000, u.DefaultBudget)

	budget := 75000
	u, err = db.UpdatePreferences(ctx, "telegram:7", &budget, nil)
	require.NoError(t, err)
	assert.Equal(t, 75000, u.DefaultBudget)
	assert.Equal(t, "Kemang", u.DefaultLocation)

	_, err = db.GetUser(ctx, "telegram:404")
	assert.True(t, errors.Is(err, fbErrors.ErrNotFound))
}

func TestSetPreference(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetPreference(ctx, "slack:U1", "spice", "pedas"))
	require.NoError(t, db.SetPreference(ctx, "slack:U1", "diet", "vegetarian"))
	require.NoError(t, db.SetPreference(ctx, "slack:U1", "diet", ""))

	u, err := db.GetUser(ctx, "slack:U1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"spice":"pedas"}`, string(u.Preferences))

	err = db.SetPreference(ctx, "slack:U1", " ", "x")
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))
}

func TestConversationRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, db.AppendConversation(ctx, []ConversationRow{
		{UserKey: "a", Role: "user", Content: "halo", Timestamp: old},
		{UserKey: "a", Role: "assistant", Content: "hai", Timestamp: old},
		{UserKey: "b", Role: "user", Content: "pagi"},
	}))

	rows, err := db.LoadConversation(ctx, "a")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "halo", rows[0].Content)

	n, err := db.DeleteConversationBefore(ctx, "a", rows[1].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stats, err := db.ConversationStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "b", stats[0].UserKey)

	evicted, err := db.DeleteIdleConversations(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, evicted)

	n, err = db.ClearConversation(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
