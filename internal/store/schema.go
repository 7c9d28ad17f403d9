package store

// migrations are applied in order; the index+1 is recorded in PRAGMA user_version.
var migrations = []string{
	`
CREATE TABLE users (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id      TEXT NOT NULL UNIQUE,
	username         TEXT NOT NULL DEFAULT '',
	default_budget   INTEGER NOT NULL DEFAULT 50000,
	default_location TEXT NOT NULL DEFAULT '',
	preferences      TEXT NOT NULL DEFAULT '{}',
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE restaurants (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	location      TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	price_range   TEXT NOT NULL DEFAULT '',
	avg_price     INTEGER NOT NULL DEFAULT 0,
	rating        REAL NOT NULL DEFAULT 0,
	cuisine_type  TEXT NOT NULL DEFAULT '',
	opening_hours TEXT NOT NULL DEFAULT '',
	contact       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	latitude      REAL,
	longitude     REAL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE menu_items (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	restaurant_id INTEGER NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         INTEGER NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	is_available  INTEGER NOT NULL DEFAULT 1,
	image_url     TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_menu_items_restaurant ON menu_items(restaurant_id);

CREATE TABLE user_favorites (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	restaurant_id INTEGER NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	added_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, restaurant_id)
);

CREATE TABLE order_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	restaurant_id INTEGER NOT NULL REFERENCES restaurants(id),
	menu_items    TEXT NOT NULL DEFAULT '[]',
	total_price   INTEGER NOT NULL DEFAULT 0,
	order_date    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	mood          TEXT NOT NULL DEFAULT '',
	rating        INTEGER CHECK (rating IS NULL OR (rating >= 1 AND rating <= 5)),
	review        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_order_history_user ON order_history(user_id, order_date);
`,
	`
CREATE TABLE conversations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_key     TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	tool_calls   TEXT NOT NULL DEFAULT '',
	tool_call_id TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL DEFAULT '',
	timestamp    TIMESTAMP NOT NULL
);
CREATE INDEX idx_conversations_user ON conversations(user_key, id);
`,
}
