package store

import (
	"encoding/json"
	"time"
)

// User is keyed externally by the chat identity (for example "telegram:42").
type User struct {
	ID              int64           `json:"id"`
	ExternalID      string          `json:"external_id"`
	Username        string          `json:"username"`
	DefaultBudget   int             `json:"default_budget"`
	DefaultLocation string          `json:"default_location"`
	Preferences     json.RawMessage `json:"preferences,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Restaurant struct {
	ID           int64    `json:"id" yaml:"-"`
	Name         string   `json:"name" yaml:"name"`
	Location     string   `json:"location" yaml:"location"`
	Category     string   `json:"category" yaml:"category"`
	PriceRange   string   `json:"price_range" yaml:"price_range"`
	AvgPrice     int      `json:"avg_price" yaml:"avg_price"`
	Rating       float64  `json:"rating" yaml:"rating"`
	CuisineType  string   `json:"cuisine_type" yaml:"cuisine_type"`
	OpeningHours string   `json:"opening_hours" yaml:"opening_hours"`
	Contact      string   `json:"contact" yaml:"contact"`
	Description  string   `json:"description" yaml:"description"`
	Latitude     *float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude    *float64 `json:"longitude,omitempty" yaml:"longitude"`

	// DistanceKM is set by location searches only.
	DistanceKM *float64 `json:"distance_km,omitempty" yaml:"-"`
}

type MenuItem struct {
	ID           int64  `json:"id" yaml:"-"`
	RestaurantID int64  `json:"restaurant_id" yaml:"-"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	Price        int    `json:"price" yaml:"price"`
	Category     string `json:"category" yaml:"category"`
	IsAvailable  bool   `json:"is_available" yaml:"-"`
	ImageURL     string `json:"image_url,omitempty" yaml:"image_url"`
}

// RestaurantDetail is a restaurant together with its available menu.
type RestaurantDetail struct {
	Restaurant
	Menu []MenuItem `json:"menu"`
}

type Favorite struct {
	Restaurant
	AddedAt time.Time `json:"added_at"`
}

type Order struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	RestaurantID int64     `json:"restaurant_id"`
	Restaurant   string    `json:"restaurant_name,omitempty"`
	MenuItems    []string  `json:"menu_items"`
	TotalPrice   int       `json:"total_price"`
	OrderDate    time.Time `json:"order_date"`
	Mood         string    `json:"mood,omitempty"`
	Rating       *int      `json:"rating,omitempty"`
	Review       string    `json:"review,omitempty"`
}

// NewOrder is the input of SaveOrder.
type NewOrder struct {
	ExternalID   string
	RestaurantID int64
	MenuItems    []string
	TotalPrice   int
	Mood         string
}

// ConversationRow is one persisted conversation entry.
type ConversationRow struct {
	ID         int64
	UserKey    string
	Role       string
	Content    string
	ToolCalls  string
	ToolCallID string
	Name       string
	Timestamp  time.Time
}

// ConversationStat summarises the stored history of one identity.
type ConversationStat struct {
	UserKey    string    `json:"user_key"`
	Entries    int       `json:"entries"`
	LastActive time.Time `json:"last_active"`
}
