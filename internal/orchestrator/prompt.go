package orchestrator

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/harunnryd/foodiebot/internal/conversation"
)

const systemPrompt = `Kamu adalah FoodieBot, asisten kuliner yang ramah dan santai untuk pengguna di Indonesia.
Bantu user menemukan restoran, menu, dan makanan yang cocok dengan budget, lokasi, mood, dan cuaca.
Selalu gunakan tools yang tersedia untuk data restoran, favorit, pesanan, cuaca, dan kalori. Jangan mengarang nama restoran atau harga.
Parameter user_id diisi otomatis oleh sistem, jangan tanyakan ke user.
Jawab dalam Bahasa Indonesia yang santai, ringkas, dan pakai emoji secukupnya. Tulis harga dalam format Rupiah (contoh: Rp 30.000).`

var greetings = map[string]struct{}{
	"halo": {}, "hallo": {}, "hai": {}, "hi": {}, "hello": {}, "hey": {}, "hei": {},
	"pagi": {}, "siang": {}, "sore": {}, "malam": {}, "selamat pagi": {}, "selamat siang": {},
	"selamat sore": {}, "selamat malam": {}, "assalamualaikum": {}, "permisi": {}, "p": {},
	"halo bot": {}, "hai bot": {}, "hi bot": {},
}

// isBareGreeting reports whether text is only a greeting, ignoring case,
// punctuation and emoji.
func isBareGreeting(text string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return false
	}
	_, ok := greetings[cleaned]
	return ok
}

// timeOfDay returns the Indonesian greeting period for t.
func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h <= 10:
		return "pagi"
	case h >= 11 && h <= 14:
		return "siang"
	case h >= 15 && h <= 17:
		return "sore"
	default:
		return "malam"
	}
}

// annotateGreeting adds situational context to a bare greeting so the model
// answers with the right "Selamat ..." and offers help.
func annotateGreeting(text string, now time.Time) string {
	if !isBareGreeting(text) {
		return text
	}
	return fmt.Sprintf("%s\n\n[Konteks: user hanya menyapa. Sekarang %s (%s). Balas dengan \"Selamat %s\" dan tawarkan bantuan cari makan.]",
		text, timeOfDay(now), now.Format("15:04"), timeOfDay(now))
}

func buildSystemPrompt(displayName string, prefs map[string]string, now time.Time) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Waktu sekarang: %s.", now.Format("Monday, 02 January 2006 15:04 MST"))
	if name := strings.TrimSpace(displayName); name != "" {
		fmt.Fprintf(&b, "\nNama user: %s.", name)
	}
	if summary := conversation.PreferenceSummary(prefs); summary != "" {
		fmt.Fprintf(&b, "\nPreferensi user: %s.", summary)
	}
	return b.String()
}
