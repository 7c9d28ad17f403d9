package formatter

import (
	"fmt"
	"strconv"

	"github.com/harunnryd/foodiebot/internal/store"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	orange := lipgloss.Color("208")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(orange).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(orange),
	}
}

func (f *TableFormatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatRestaurants(restaurants []store.Restaurant) (string, error) {
	if len(restaurants) == 0 {
		return "Belum ada restoran. Jalankan 'foodiebot db seed' dulu.", nil
	}

	t := f.newTable("ID", "Nama", "Lokasi", "Kategori", "Harga", "Rating")
	for _, r := range restaurants {
		t.Row(
			strconv.FormatInt(r.ID, 10),
			truncateString(r.Name, 28),
			truncateString(r.Location, 20),
			truncateString(r.Category, 16),
			formatRupiah(r.AvgPrice),
			fmt.Sprintf("%.1f", r.Rating),
		)
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatConversations(stats []store.ConversationStat) (string, error) {
	if len(stats) == 0 {
		return "Belum ada percakapan tersimpan.", nil
	}

	t := f.newTable("User", "Entries", "Last Active")
	for _, s := range stats {
		t.Row(
			truncateString(s.UserKey, 32),
			strconv.Itoa(s.Entries),
			s.LastActive.Local().Format("2006-01-02 15:04"),
		)
	}
	return t.String(), nil
}

// formatRupiah renders 25000 as "Rp25.000".
func formatRupiah(amount int) string {
	digits := strconv.Itoa(amount)
	if amount < 0 {
		digits = digits[1:]
	}
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	if amount < 0 {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
