package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocabulary = []string{"pizza", "pasta", "goreng", "kopi", "bakso", "sushi", "teh"}

// keywordEmbedding counts vocabulary words; the last dimension keeps vectors non-zero.
func keywordEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(testVocabulary)+1)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		for i, v := range testVocabulary {
			if w == v {
				vec[i]++
			}
		}
	}
	vec[len(testVocabulary)] = 0.01
	return vec, nil
}

func TestMenuIndex_RebuildAndSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries, err := db.ListMenuEntries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ix, err := NewMenuIndex(t.TempDir(), keywordEmbedding)
	require.NoError(t, err)
	require.NoError(t, ix.Rebuild(ctx, entries))
	assert.Equal(t, len(entries), ix.Count())

	hits, err := ix.Search(ctx, "pizza", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "Pizza", hits[0].Category)
	assert.Equal(t, "Pizza Hut", hits[0].RestaurantName)
	assert.NotZero(t, hits[0].RestaurantID)
	assert.Greater(t, hits[0].Price, 0)

	all, err := ix.Search(ctx, "kopi", 1000)
	require.NoError(t, err)
	assert.Len(t, all, len(entries))

	require.NoError(t, ix.Rebuild(ctx, entries[:2]))
	assert.Equal(t, 2, ix.Count())
}

func TestMenuIndex_WithoutEmbedder(t *testing.T) {
	ix, err := NewMenuIndex("", nil)
	require.NoError(t, err)

	_, err = ix.Search(context.Background(), "pizza", 3)
	assert.True(t, errors.Is(err, fbErrors.ErrInvalidInput))
	assert.Zero(t, ix.Count())
}

func TestMenuIndex_EmptyIndex(t *testing.T) {
	ix, err := NewMenuIndex("", keywordEmbedding)
	require.NoError(t, err)

	hits, err := ix.Search(context.Background(), "bakso", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
