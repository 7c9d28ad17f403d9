package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/foodiebot/internal/store"
)

func TestFormatterFactory_Create(t *testing.T) {
	factory := NewFormatterFactory()

	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{name: "table format", format: OutputFormatTable},
		{name: "json format", format: OutputFormatJSON},
		{name: "yaml format", format: OutputFormatYAML},
		{name: "invalid format", format: OutputFormat("invalid"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && formatter == nil {
				t.Error("Create() returned nil formatter for valid format")
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "table", want: OutputFormatTable},
		{input: "JSON", want: OutputFormatJSON},
		{input: " yaml ", want: OutputFormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func sampleRestaurants() []store.Restaurant {
	return []store.Restaurant{
		{ID: 1, Name: "Warung Padang Sederhana", Location: "Jakarta Pusat", Category: "Padang", AvgPrice: 35000, Rating: 4.5},
		{ID: 2, Name: "Bakso Pak Kumis", Location: "Bandung", Category: "Bakso", AvgPrice: 20000, Rating: 4.2},
	}
}

func TestTableFormatter_Restaurants(t *testing.T) {
	out, err := NewTableFormatter().FormatRestaurants(sampleRestaurants())
	if err != nil {
		t.Fatalf("FormatRestaurants: %v", err)
	}
	for _, want := range []string{"Warung Padang Sederhana", "Bakso Pak Kumis", "Rp35.000", "4.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	empty, _ := NewTableFormatter().FormatRestaurants(nil)
	if !strings.Contains(empty, "db seed") {
		t.Errorf("empty output = %q", empty)
	}
}

func TestTableFormatter_Conversations(t *testing.T) {
	stats := []store.ConversationStat{{UserKey: "telegram:42", Entries: 6, LastActive: time.Now()}}
	out, err := NewTableFormatter().FormatConversations(stats)
	if err != nil {
		t.Fatalf("FormatConversations: %v", err)
	}
	if !strings.Contains(out, "telegram:42") || !strings.Contains(out, "6") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	out, err := NewJSONFormatter().FormatRestaurants(nil)
	if err != nil {
		t.Fatalf("FormatRestaurants: %v", err)
	}
	if out != "[]" {
		t.Errorf("got %q, want []", out)
	}

	out, err = NewJSONFormatter().FormatRestaurants(sampleRestaurants())
	if err != nil {
		t.Fatalf("FormatRestaurants: %v", err)
	}
	var decoded []store.Restaurant
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestYAMLFormatter_Conversations(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out, err := NewYAMLFormatter().FormatConversations([]store.ConversationStat{{UserKey: "cli:local", Entries: 2, LastActive: at}})
	if err != nil {
		t.Fatalf("FormatConversations: %v", err)
	}
	for _, want := range []string{"user_key: cli:local", "entries: 2", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int]string{
		0:       "Rp0",
		500:     "Rp500",
		25000:   "Rp25.000",
		1250000: "Rp1.250.000",
	}
	for in, want := range tests {
		if got := formatRupiah(in); got != want {
			t.Errorf("formatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
