package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/harunnryd/foodiebot/internal/errors"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var slackMention = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

type SlackAdapter struct {
	signingSecret string
	botToken      string
	eventHandler  EventHandler
	server        *http.Server
	port          int
	client        *slack.Client
	maxLength     int
}

func NewSlackAdapter(port int, signingSecret, botToken string, maxLength int, eventHandler EventHandler) *SlackAdapter {
	return &SlackAdapter{
		signingSecret: signingSecret,
		botToken:      botToken,
		eventHandler:  eventHandler,
		port:          port,
		client:        slack.New(botToken),
		maxLength:     maxLength,
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

func (s *SlackAdapter) MaxMessageLength() int {
	return s.maxLength
}

// Handler exposes the Events API endpoint.
func (s *SlackAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", s.handleEvents)
	return mux
}

func (s *SlackAdapter) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go func() {
		slog.Info("Slack Adapter listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Slack server failed", "error", err)
		}
	}()

	<-ctx.Done()
	return s.server.Shutdown(context.Background())
}

func (s *SlackAdapter) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *SlackAdapter) Send(ctx context.Context, sessionID string, content string) error {
	channel, thread, _ := strings.Cut(sessionID, "/")
	opts := []slack.MsgOption{slack.MsgOptionText(content, false)}
	if thread != "" {
		opts = append(opts, slack.MsgOptionTS(thread))
	}
	_, _, err := s.client.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return errors.Wrap(errors.Transient(err.Error()), "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", channel, "thread", thread)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	if s.server == nil {
		return errors.Transient("Slack server not started")
	}

	if s.client == nil {
		return errors.Transient("Slack client not initialized")
	}

	_, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return errors.Transient("Slack connection failed")
	}

	return nil
}

func (s *SlackAdapter) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if eventsAPIEvent.Type == slackevents.URLVerification {
		var r *slackevents.ChallengeResponse
		err := json.Unmarshal([]byte(body), &r)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(r.Challenge))
		return
	}

	if eventsAPIEvent.Type == slackevents.CallbackEvent {
		eventID := ""
		if cb, ok := eventsAPIEvent.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
		}

		switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			if ev.BotID != "" {
				break
			}
			// Mentions in channels are answered in a thread.
			thread := ev.ThreadTimeStamp
			if thread == "" {
				thread = ev.TimeStamp
			}
			s.dispatch(r.Context(), ev.Channel+"/"+thread, stripSlackMention(ev.Text), ev.User, eventID, ev.TimeStamp)
		case *slackevents.MessageEvent:
			// Channel messages arrive as app_mention; only direct messages are taken here.
			if ev.BotID != "" || ev.SubType != "" || ev.ChannelType != "im" {
				break
			}
			s.dispatch(r.Context(), ev.Channel, stripSlackMention(ev.Text), ev.User, eventID, ev.TimeStamp)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (s *SlackAdapter) dispatch(ctx context.Context, sessionID, text, user, eventID, ts string) {
	if s.eventHandler == nil || strings.TrimSpace(text) == "" {
		return
	}
	metadata := map[string]string{
		MetaUserID:   user,
		MetaUserName: user,
		MetaEventID:  eventID,
		"ts":         ts,
	}
	if err := s.eventHandler(ctx, "slack", "user_message", sessionID, text, metadata); err != nil {
		slog.Error("Failed to handle Slack event", "error", err)
	}
}

func stripSlackMention(text string) string {
	return strings.Join(strings.Fields(slackMention.ReplaceAllString(text, " ")), " ")
}
