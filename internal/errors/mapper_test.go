package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	m := NewDefaultErrorMapper()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"no rows", errors.New("sql: no rows in result set"), ErrNotFound},
		{"locked", errors.New("database is locked"), ErrConflict},
		{"unique", errors.New("UNIQUE constraint failed: favorites.user_id"), ErrConflict},
		{"rate limit", errors.New("429 Too Many Requests"), ErrTransient},
		{"malformed", errors.New("invalid json in arguments"), ErrInvalidModelOutput},
		{"other", errors.New("boom"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.MapError(tt.in), tt.want)
		})
	}

	assert.ErrorIs(t, m.MapError(context.Canceled), context.Canceled)
	assert.Nil(t, m.MapError(nil))
}

func TestCategoryAndRetryable(t *testing.T) {
	err := Wrap(Transient("weather api"), "get_weather")
	assert.Equal(t, "ErrTransient", Category(err))
	assert.True(t, IsRetryable(err))

	assert.Equal(t, "ErrNotFound", Category(NotFound("restaurant 9")))
	assert.False(t, IsRetryable(NotFound("restaurant 9")))
	assert.Equal(t, "Unknown", Category(fmt.Errorf("plain")))
	assert.Equal(t, "", Category(nil))
}
