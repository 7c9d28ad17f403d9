package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harunnryd/foodiebot/internal/conversation"
	"github.com/harunnryd/foodiebot/internal/model"
	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel replays responses in order and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []contract.CompletionResponse
	fallback  *contract.CompletionResponse
	requests  [][]contract.Message
	hook      func(call int)
}

func (m *scriptedModel) Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef) contract.CompletionResponse {
	m.mu.Lock()
	call := len(m.requests)
	m.requests = append(m.requests, append([]contract.Message(nil), messages...))
	var resp contract.CompletionResponse
	switch {
	case call < len(m.responses):
		resp = m.responses[call]
	case m.fallback != nil:
		resp = *m.fallback
	}
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	resp.ToolCalls = contract.CloneToolCalls(resp.ToolCalls)
	return resp
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) request(i int) []contract.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

// recordingTool captures the raw arguments it was called with.
type recordingTool struct {
	name     string
	userID   bool
	delay    time.Duration
	data     interface{}
	message  string
	mu       sync.Mutex
	received []string
}

func (t *recordingTool) Name() string        { return t.name }
func (t *recordingTool) Description() string { return "recording " + t.name }
func (t *recordingTool) Parameters() map[string]interface{} {
	props := map[string]interface{}{
		"budget":   map[string]interface{}{"type": "integer"},
		"location": map[string]interface{}{"type": "string"},
		"owner":    map[string]interface{}{"type": "string"},
	}
	if t.userID {
		props[tool.UserIDParam] = map[string]interface{}{"type": "string"}
	}
	return map[string]interface{}{"type": "object", "properties": props}
}

func (t *recordingTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	t.mu.Lock()
	t.received = append(t.received, string(input))
	t.mu.Unlock()
	if t.data != nil {
		return tool.Reply(t.data, t.message)
	}
	return tool.Reply(map[string]string{"tool": t.name}, "ok from "+t.name)
}

func (t *recordingTool) inputs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.received...)
}

func newRunner(tools ...tool.Tool) *tool.Runner {
	registry := tool.NewRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return tool.NewRunner(registry, time.Second)
}

func fixedNow(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 10, 18, hour, 0, 0, 0, time.UTC)
	}
}

func newTestEngine(m ModelClient, runner ToolExecutor, opts Options) (*Engine, conversation.Store) {
	conv := conversation.NewMemoryStore(conversation.MaxEntries(10))
	if opts.Now == nil {
		opts.Now = fixedNow(12)
	}
	return NewEngine(m, runner, conv, opts), conv
}

func toolCall(id, name, input string) *contract.ToolCall {
	return &contract.ToolCall{ID: id, Name: name, Input: input}
}

func TestProcess_BudgetScenario(t *testing.T) {
	search := &recordingTool{
		name: "search_restaurants",
		data: []map[string]interface{}{
			{"id": 1, "name": "Warung Sederhana", "avg_price": 25000},
			{"id": 2, "name": "Bakso Pak Kumis", "avg_price": 20000},
		},
		message: "Ditemukan 2 restoran",
	}
	final := "Ada Warung Sederhana (Rp 25.000) dan Bakso Pak Kumis (Rp 20.000) 😋"
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{toolCall("call_1", "search_restaurants", `{"budget":30000}`)}},
		{Content: final},
	}}
	e, conv := newTestEngine(m, newRunner(search), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "budget 30rb"})
	require.NoError(t, err)
	assert.Equal(t, final, reply)
	assert.Contains(t, reply, "Warung Sederhana")
	assert.Contains(t, reply, "Bakso Pak Kumis")

	require.Equal(t, []string{`{"budget":30000}`}, search.inputs())
	require.Equal(t, 2, m.calls())

	second := m.request(1)
	require.GreaterOrEqual(t, len(second), 4)
	assistant := second[len(second)-2]
	toolMsg := second[len(second)-1]
	assert.Equal(t, contract.RoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, `{"budget":30000}`, assistant.ToolCalls[0].Input)
	assert.Equal(t, contract.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "search_restaurants", toolMsg.Name)
	assert.Contains(t, toolMsg.Content, `"success":true`)
	assert.Contains(t, toolMsg.Content, "Warung Sederhana")
	assert.Contains(t, toolMsg.Content, "Bakso Pak Kumis")

	history, err := conv.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, contract.RoleUser, history[0].Role)
	assert.Equal(t, "budget 30rb", history[0].Content)
	assert.Equal(t, contract.RoleAssistant, history[1].Role)
	assert.Equal(t, reply, history[1].Content)
}

func TestProcess_PromptCarriesHistoryAndPreferences(t *testing.T) {
	m := &scriptedModel{fallback: &contract.CompletionResponse{Content: "Siap!"}}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true})
	ctx := context.Background()
	require.NoError(t, conv.SetPreference(ctx, "u1", conversation.PrefLocation, "Kemang"))

	_, err := e.Process(ctx, Turn{UserID: "u1", DisplayName: "Budi", Text: "mau makan"})
	require.NoError(t, err)
	_, err = e.Process(ctx, Turn{UserID: "u1", DisplayName: "Budi", Text: "yang pedas"})
	require.NoError(t, err)

	msgs := m.request(1)
	require.Len(t, msgs, 4)
	assert.Equal(t, contract.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Nama user: Budi")
	assert.Contains(t, msgs[0].Content, "location: Kemang")
	assert.Equal(t, "mau makan", msgs[1].Content)
	assert.Equal(t, "Siap!", msgs[2].Content)
	assert.Equal(t, "yang pedas", msgs[3].Content)
}

func TestProcess_IterationCeiling(t *testing.T) {
	search := &recordingTool{name: "search_restaurants"}
	m := &scriptedModel{fallback: &contract.CompletionResponse{
		ToolCalls: []*contract.ToolCall{toolCall("loop", "search_restaurants", `{}`)},
	}}
	e, conv := newTestEngine(m, newRunner(search), Options{MaxIterations: 3, PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "cari terus"})
	require.NoError(t, err)
	assert.Equal(t, FallbackText, reply)
	assert.Equal(t, 3, m.calls())
	assert.Len(t, search.inputs(), 3)

	history, err := conv.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, contract.RoleUser, history[0].Role)
}

func TestProcess_DegradedReplyNotPersisted(t *testing.T) {
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{Content: model.ApologyText, Degraded: true},
	}}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "halo"})
	require.NoError(t, err)
	assert.Equal(t, model.ApologyText, reply)

	history, err := conv.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "halo", history[0].Content)
}

func TestProcess_PanicBecomesErrorText(t *testing.T) {
	m := &scriptedModel{
		responses: []contract.CompletionResponse{{Content: "tidak terpakai"}},
		hook:      func(int) { panic("boom") },
	}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "rekomendasi dong"})
	require.NoError(t, err)
	assert.Equal(t, ErrorText, reply)

	history, err := conv.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, contract.RoleUser, history[0].Role)
}

func TestProcess_EmptyReplyBecomesErrorText(t *testing.T) {
	m := &scriptedModel{responses: []contract.CompletionResponse{{Content: "   "}}}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "apa ya"})
	require.NoError(t, err)
	assert.Equal(t, ErrorText, reply)

	stats, err := conv.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestProcess_EmptyIdentityRejected(t *testing.T) {
	m := &scriptedModel{}
	e, _ := newTestEngine(m, newRunner(), Options{})

	_, err := e.Process(context.Background(), Turn{UserID: "  ", Text: "halo"})
	require.Error(t, err)
	assert.Equal(t, 0, m.calls())
}

func TestProcess_PersistAssistantDisabled(t *testing.T) {
	m := &scriptedModel{fallback: &contract.CompletionResponse{Content: "Oke!"}}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: false})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "makan apa"})
	require.NoError(t, err)
	assert.Equal(t, "Oke!", reply)

	stats, err := conv.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.AssistantCount)
}

func TestProcess_InjectsUserID(t *testing.T) {
	favorites := &recordingTool{name: "get_favorites", userID: true}
	search := &recordingTool{name: "search_restaurants"}
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{
			toolCall("a", "get_favorites", `{"user_id":"{{user_id}}","owner":"current_user"}`),
			toolCall("b", "search_restaurants", `{"owner":"current_user"}`),
		}},
		{Content: "Ini favorit kamu"},
	}}
	e, _ := newTestEngine(m, newRunner(favorites, search), Options{ParallelTools: true, PersistAssistant: true})

	_, err := e.Process(context.Background(), Turn{UserID: "tg:42", Text: "favoritku apa aja"})
	require.NoError(t, err)

	require.Len(t, favorites.inputs(), 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(favorites.inputs()[0]), &got))
	assert.Equal(t, "tg:42", got[tool.UserIDParam])
	assert.Equal(t, "tg:42", got["owner"])

	assert.Equal(t, []string{`{"owner":"current_user"}`}, search.inputs())

	// The model sees its own call verbatim, not the injected arguments.
	assistant := m.request(1)[2]
	require.Len(t, assistant.ToolCalls, 2)
	assert.Equal(t, `{"user_id":"{{user_id}}","owner":"current_user"}`, assistant.ToolCalls[0].Input)
}

func TestProcess_ParallelResultsKeepRequestOrder(t *testing.T) {
	slow := &recordingTool{name: "get_weather", delay: 80 * time.Millisecond}
	fast := &recordingTool{name: "search_restaurants"}
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{
			toolCall("first", "get_weather", `{"location":"Bandung"}`),
			toolCall("second", "search_restaurants", `{"location":"Bandung"}`),
			toolCall("third", "order_pizza", `{}`),
		}},
		{Content: "Hujan, cocok makan soto"},
	}}
	e, _ := newTestEngine(m, newRunner(slow, fast), Options{ParallelTools: true, PersistAssistant: true})

	start := time.Now()
	_, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "cuaca dan makan"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	msgs := m.request(1)
	toolMsgs := msgs[len(msgs)-3:]
	assert.Equal(t, "first", toolMsgs[0].ToolCallID)
	assert.Equal(t, "second", toolMsgs[1].ToolCallID)
	assert.Equal(t, "third", toolMsgs[2].ToolCallID)
	assert.Contains(t, toolMsgs[2].Content, "Unknown function: order_pizza")
	assert.Contains(t, toolMsgs[2].Content, `"success":false`)
}

func TestProcess_RepairsLeakedCall(t *testing.T) {
	search := &recordingTool{name: "search_restaurants"}
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{Content: `<function=search_restaurants>{"location":"Kemang"}</function>`},
		{Content: "Di Kemang ada Sate Senayan."},
	}}
	e, _ := newTestEngine(m, newRunner(search), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "makan di kemang"})
	require.NoError(t, err)
	assert.Equal(t, "Di Kemang ada Sate Senayan.", reply)
	assert.Equal(t, []string{`{"location":"Kemang"}`}, search.inputs())
	assert.NotContains(t, reply, "<function")
}

func TestProcess_ToolCallIDsUniqueAcrossIterations(t *testing.T) {
	search := &recordingTool{name: "search_restaurants"}
	weather := &recordingTool{name: "get_weather"}
	m := &scriptedModel{responses: []contract.CompletionResponse{
		{Content: `<function=search_restaurants>{"location":"Kemang"}</function>`},
		{Content: `<function=search_restaurants>{"location":"Blok M"}</function>`},
		{ToolCalls: []*contract.ToolCall{
			toolCall("", "get_weather", `{"location":"Kemang"}`),
			toolCall("inline_0", "search_restaurants", `{"location":"Senopati"}`),
		}},
		{Content: "Sudah aku rangkum ya."},
	}}
	e, _ := newTestEngine(m, newRunner(search, weather), Options{PersistAssistant: true})

	reply, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "makan di selatan"})
	require.NoError(t, err)
	assert.Equal(t, "Sudah aku rangkum ya.", reply)
	require.Equal(t, 4, m.calls())

	requested := map[string]int{}
	answered := map[string]int{}
	var pending map[string]struct{}
	tools := 0
	for _, msg := range m.request(3) {
		switch msg.Role {
		case contract.RoleAssistant:
			pending = map[string]struct{}{}
			for _, c := range msg.ToolCalls {
				require.NotEmpty(t, c.ID)
				requested[c.ID]++
				pending[c.ID] = struct{}{}
			}
		case contract.RoleTool:
			tools++
			_, ok := pending[msg.ToolCallID]
			assert.True(t, ok, "tool result %q has no matching request", msg.ToolCallID)
			answered[msg.ToolCallID]++
		}
	}

	assert.Equal(t, 4, tools)
	assert.Len(t, requested, 4)
	for id, n := range requested {
		assert.Equal(t, 1, n, "id %q requested more than once", id)
		assert.Equal(t, 1, answered[id], "id %q answered %d times", id, answered[id])
	}
}

func TestProcess_LogsNonNegativeDuration(t *testing.T) {
	var buf syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	future := func() time.Time { return time.Date(2099, 1, 1, 12, 0, 0, 0, time.UTC) }
	m := &scriptedModel{fallback: &contract.CompletionResponse{Content: "Oke!"}}
	e, _ := newTestEngine(m, newRunner(), Options{PersistAssistant: true, Now: future})

	_, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "lapar"})
	require.NoError(t, err)

	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]interface{}
		if json.Unmarshal([]byte(line), &rec) != nil || rec["msg"] != "Turn completed" {
			continue
		}
		found = true
		d, ok := rec["duration"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, float64(0))
	}
	assert.True(t, found)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProcess_GreetingAnnotated(t *testing.T) {
	m := &scriptedModel{fallback: &contract.CompletionResponse{Content: "Selamat pagi! Mau makan apa?"}}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true, Now: fixedNow(8)})

	_, err := e.Process(context.Background(), Turn{UserID: "u1", Text: "Halo!"})
	require.NoError(t, err)

	msgs := m.request(0)
	last := msgs[len(msgs)-1]
	assert.True(t, strings.HasPrefix(last.Content, "Halo!"))
	assert.Contains(t, last.Content, `"Selamat pagi"`)

	history, err := conv.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Halo!", history[0].Content)
}

func TestProcess_SerializesSameIdentity(t *testing.T) {
	var inFlight, peak int32
	m := &scriptedModel{
		fallback: &contract.CompletionResponse{Content: "ok"},
		hook: func(int) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		},
	}
	e, conv := newTestEngine(m, newRunner(), Options{PersistAssistant: true})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Process(context.Background(), Turn{UserID: "u1", Text: "hai"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	stats, err := conv.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
}

func TestProcess_DetachedFromCallerCancellation(t *testing.T) {
	m := &scriptedModel{
		fallback: &contract.CompletionResponse{Content: "tetap dijawab"},
	}
	e, _ := newTestEngine(m, newRunner(), Options{PersistAssistant: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reply, err := e.Process(ctx, Turn{UserID: "u1", Text: "masih di sana?"})
	require.NoError(t, err)
	assert.Equal(t, "tetap dijawab", reply)
}

func TestHandle_Commands(t *testing.T) {
	m := &scriptedModel{fallback: &contract.CompletionResponse{Content: "Bandung lagi hujan 🌧️"}}
	e, _ := newTestEngine(m, newRunner(), Options{PersistAssistant: true, DefaultLocation: "Bandung"})
	ctx := context.Background()

	reply, err := e.Handle(ctx, Turn{UserID: "u1", Text: "/stats"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Total Pesan: 0")
	assert.Equal(t, 0, m.calls())

	reply, err = e.Handle(ctx, Turn{UserID: "u1", Text: "!cuaca"})
	require.NoError(t, err)
	assert.Equal(t, "Bandung lagi hujan 🌧️", reply)
	msgs := m.request(0)
	assert.Equal(t, "Bagaimana cuaca di Bandung?", msgs[len(msgs)-1].Content)

	reply, err = e.Handle(ctx, Turn{UserID: "u1", Text: "/reset"})
	require.NoError(t, err)
	assert.Contains(t, reply, conversation.ResetDoneMessage)

	_, err = e.Handle(ctx, Turn{Text: "/help"})
	require.Error(t, err)
}
