package command

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/conversation"
	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	"github.com/google/shlex"
)

// Result is what a command produced. When Forward is set the command was
// rewritten into a natural-language message that should go through a normal
// turn instead of being answered directly.
type Result struct {
	Reply   string
	Forward string
}

type Options struct {
	DefaultLocation string
	Model           string
	Started         time.Time
}

type Handler struct {
	conv conversation.Store
	opts Options
}

func NewHandler(conv conversation.Store, opts Options) *Handler {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	return &Handler{conv: conv, opts: opts}
}

// CanHandle reports whether input starts with a command prefix followed by a name.
func (h *Handler) CanHandle(input string) bool {
	input = strings.TrimSpace(input)
	if len(input) < 2 {
		return false
	}
	if input[0] != '/' && input[0] != '!' {
		return false
	}
	next := input[1]
	return next != ' ' && next != '/' && next != '!'
}

func (h *Handler) Execute(ctx context.Context, identity string, input string) (Result, error) {
	parts, parseErr := shlex.Split(strings.TrimSpace(input))
	if parseErr != nil {
		parts = strings.Fields(input)
	}
	if len(parts) == 0 {
		return Result{}, fbErrors.InvalidInput("empty command")
	}
	cmd := strings.ToLower(strings.TrimLeft(parts[0], "/!"))
	args := parts[1:]

	slog.Info("Executing command", "cmd", cmd, "user_id", identity)

	var (
		res Result
		err error
	)
	switch cmd {
	case "help", "bantuan", "h":
		res.Reply = helpText()
	case "reset":
		res.Reply, err = h.handleReset(ctx, identity)
	case "stats", "statistik":
		res.Reply, err = h.handleStats(ctx, identity)
	case "ping":
		res.Reply, err = h.handlePing(ctx)
	case "about", "tentang", "info":
		res.Reply = h.aboutText()
	case "weather", "cuaca":
		res.Forward = h.weatherQuestion(args)
	case "prefs", "preferensi":
		res.Reply, err = h.handlePrefs(ctx, identity, args)
	default:
		res.Reply = fmt.Sprintf("Perintah %s tidak dikenal. Ketik /help untuk daftar perintah.", parts[0])
	}

	if err != nil {
		slog.Error("Command execution failed", "cmd", cmd, "error", err, "category", fbErrors.Category(err))
		if fbErrors.IsCategory(err, fbErrors.ErrInvalidInput) {
			return Result{Reply: fmt.Sprintf("Perintah gagal: %v", err)}, nil
		}
		return Result{}, err
	}
	return res, nil
}

func (h *Handler) handleReset(ctx context.Context, identity string) (string, error) {
	existed, err := h.conv.Reset(ctx, identity)
	if err != nil {
		return "", err
	}
	if existed {
		return "🔄 " + conversation.ResetDoneMessage, nil
	}
	return "🔄 " + conversation.ResetEmptyMessage, nil
}

func (h *Handler) handleStats(ctx context.Context, identity string) (string, error) {
	stats, err := h.conv.Stats(ctx, identity)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 Statistik Chat\nTotal Pesan: %d pesan\nPesan Kamu: %d pesan\nPesan Bot: %d pesan",
		stats.Total, stats.UserCount, stats.AssistantCount), nil
}

func (h *Handler) handlePing(ctx context.Context) (string, error) {
	active, err := h.conv.ActiveUsers(ctx)
	if err != nil {
		return "", err
	}
	uptime := time.Since(h.opts.Started).Truncate(time.Second)
	return fmt.Sprintf("🏓 Pong!\nActive Users: %d users\nUptime: %s", active, uptime), nil
}

func (h *Handler) weatherQuestion(args []string) string {
	location := strings.TrimSpace(strings.Join(args, " "))
	if location == "" {
		location = h.opts.DefaultLocation
	}
	return fmt.Sprintf("Bagaimana cuaca di %s?", location)
}

// handlePrefs shows preferences without arguments and sets key=value pairs otherwise.
func (h *Handler) handlePrefs(ctx context.Context, identity string, args []string) (string, error) {
	if len(args) == 0 {
		prefs, err := h.conv.Preferences(ctx, identity)
		if err != nil {
			return "", err
		}
		summary := conversation.PreferenceSummary(prefs)
		if summary == "" {
			return "Belum ada preferensi. Contoh: /prefs budget=30000 location=Bandung", nil
		}
		return "⚙️ Preferensi kamu: " + summary, nil
	}

	updates := make([][2]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !ok || key == "" {
			return "", fbErrors.InvalidInput(fmt.Sprintf("format salah %q, pakai key=value", arg))
		}
		switch key {
		case conversation.PrefBudget:
			budget, err := ParseBudget(value)
			if err != nil {
				return "", err
			}
			value = strconv.Itoa(budget)
		case conversation.PrefLocation:
			if value == "" {
				return "", fbErrors.InvalidInput("location tidak boleh kosong")
			}
		default:
			return "", fbErrors.InvalidInput(fmt.Sprintf("preferensi %q tidak dikenal", key))
		}
		updates = append(updates, [2]string{key, value})
	}

	for _, u := range updates {
		if err := h.conv.SetPreference(ctx, identity, u[0], u[1]); err != nil {
			return "", err
		}
	}
	return "✅ Preferensi berhasil diupdate!", nil
}

// ParseBudget accepts plain rupiah amounts and the "30rb"/"30k" shorthand.
func ParseBudget(value string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "rp")
	v = strings.ReplaceAll(strings.TrimSpace(v), ".", "")
	multiplier := 1
	for _, suffix := range []string{"ribu", "rb", "k"} {
		if strings.HasSuffix(v, suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, suffix))
			multiplier = 1000
			break
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fbErrors.InvalidInput(fmt.Sprintf("budget harus angka positif, bukan %q", value))
	}
	return n * multiplier, nil
}

func helpText() string {
	return strings.Join([]string{
		"🍕 FoodieBot - Your Food Companion!",
		"Aku bantu kamu cari makanan yang pas. Ceritain budget, lokasi, mood, atau cuaca!",
		"",
		"Contoh: \"Budget 30rb mau makan enak\", \"Lagi hujan, cocoknya makan apa?\", \"Kalori nasi goreng berapa?\"",
		"",
		"Commands:",
		"/help - Tampilkan menu ini",
		"/reset - Reset conversation",
		"/stats - Lihat statistik chat kamu",
		"/ping - Cek bot status",
		"/about - Tentang FoodieBot",
		"/cuaca [lokasi] - Cek cuaca dan saran makanan",
		"/prefs [budget=N] [location=X] - Lihat atau ubah preferensi",
	}, "\n")
}

func (h *Handler) aboutText() string {
	model := h.opts.Model
	if model == "" {
		model = "-"
	}
	return strings.Join([]string{
		"🤖 Tentang FoodieBot",
		"FoodieBot adalah food companion yang membantu kamu menemukan makanan yang pas dengan budget, mood, dan cuaca kamu!",
		"",
		"AI Model: " + model,
		"Weather Data: wttr.in",
		"Fitur: rekomendasi restoran, favorit, riwayat pesanan, kalori, saran sesuai cuaca.",
	}, "\n")
}
