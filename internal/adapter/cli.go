package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/harunnryd/foodiebot/internal/config"
)

// CLIAdapter is a line-oriented REPL: each input line becomes one event and
// replies are printed in color.
type CLIAdapter struct {
	in           io.Reader
	out          io.Writer
	user         string
	eventHandler EventHandler
	maxLength    int

	mu      sync.Mutex
	running bool
}

func NewCLIAdapter(in io.Reader, out io.Writer, user string, maxLength int, eventHandler EventHandler) *CLIAdapter {
	if maxLength <= 0 {
		maxLength = config.DefaultMaxMessageLength
	}
	if strings.TrimSpace(user) == "" {
		user = "local"
	}
	return &CLIAdapter{
		in:           in,
		out:          out,
		user:         user,
		eventHandler: eventHandler,
		maxLength:    maxLength,
	}
}

func (a *CLIAdapter) Name() string {
	return "cli"
}

func (a *CLIAdapter) MaxMessageLength() int {
	return a.maxLength
}

func (a *CLIAdapter) Send(ctx context.Context, sessionID string, content string) error {
	color := "\033[32m" // green for answers
	reset := "\033[0m"

	switch {
	case strings.HasPrefix(content, "Maaf"):
		color = "\033[33m"
	case strings.HasPrefix(content, "Perintah gagal"):
		color = "\033[31m"
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, "%s%s%s\n", color, content, reset)
	return nil
}

// Start reads lines until EOF, "/exit" or "/quit", or cancellation. It blocks.
func (a *CLIAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	fmt.Fprintln(a.out, "FoodieBot siap! Ketik pesan kamu, /help untuk bantuan, /exit untuk keluar.")

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errc <- scanner.Err()
		close(lines)
	}()

	for {
		a.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "/exit" || text == "/quit" {
				fmt.Fprintln(a.out, "Sampai jumpa! 👋")
				return nil
			}
			if a.eventHandler == nil {
				continue
			}
			metadata := map[string]string{MetaUserID: a.user, MetaUserName: a.user}
			if err := a.eventHandler(ctx, "cli", "user_message", "cli:"+a.user, text, metadata); err != nil {
				_ = a.Send(ctx, "cli:"+a.user, "Perintah gagal: "+err.Error())
			}
		}
	}
}

func (a *CLIAdapter) prompt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprint(a.out, "> ")
}

func (a *CLIAdapter) Stop(ctx context.Context) error {
	return nil
}

func (a *CLIAdapter) Health(ctx context.Context) error {
	return nil
}
