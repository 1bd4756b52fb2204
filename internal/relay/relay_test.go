package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/discord"
	"github.com/rickgao/dmrelay/internal/gateway"
)

type call struct {
	method    string
	channelID string
	arg       string
	replyTo   string
}

type fakeREST struct {
	mu      sync.Mutex
	calls   []call
	sendErr error
}

func (f *fakeREST) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeREST) SendMessage(ctx context.Context, channelID, content, replyToID string) error {
	f.record(call{method: "send", channelID: channelID, arg: content, replyTo: replyToID})
	return f.sendErr
}

func (f *fakeREST) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	f.record(call{method: "react", channelID: channelID, arg: emoji, replyTo: messageID})
	return errors.New("reactions disabled")
}

func (f *fakeREST) TriggerTyping(ctx context.Context, channelID string) error {
	f.record(call{method: "typing", channelID: channelID})
	return nil
}

func (f *fakeREST) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeREST) find(method string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.method == method {
			return c, true
		}
	}
	return call{}, false
}

type fakeUI struct {
	mu         sync.Mutex
	statuses   []string
	buttons    []string
	collapsed  int
	entries    []activity.Entry
	processing []string
	hidden     int
}

func (u *fakeUI) SetStatus(phase gateway.Phase, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses = append(u.statuses, string(phase)+":"+text)
}

func (u *fakeUI) SetConnectButton(label string, style gateway.ButtonStyle, disabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buttons = append(u.buttons, label)
}

func (u *fakeUI) CollapseSettings() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.collapsed++
}

func (u *fakeUI) AppendLog(e activity.Entry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, e)
}

func (u *fakeUI) ShowProcessing(channelID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.processing = append(u.processing, channelID)
}

func (u *fakeUI) HideProcessing() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hidden++
}

func (u *fakeUI) kinds() []activity.Kind {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []activity.Kind
	for _, e := range u.entries {
		out = append(out, e.Kind)
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *fakeRecorder) Record(e activity.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *fakeRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type allowlist map[string]struct{}

func (a allowlist) AllowedUsers() map[string]struct{} { return a }

type fakePublisher struct {
	mu   sync.Mutex
	msgs []discord.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg discord.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type fixture struct {
	rest *fakeREST
	ui   *fakeUI
	rec  *fakeRecorder
	pub  *fakePublisher
	h    *Handler
}

func newFixture(t *testing.T, allowed allowlist, responder Responder) *fixture {
	t.Helper()
	f := &fixture{
		rest: &fakeREST{},
		ui:   &fakeUI{},
		rec:  &fakeRecorder{},
		pub:  &fakePublisher{},
	}
	if allowed == nil {
		allowed = allowlist{}
	}
	f.h = NewHandler(DefaultHandlerConfig(), Deps{
		REST:      f.rest,
		Responder: responder,
		Allowlist: allowed,
		Publisher: f.pub,
		UI:        f.ui,
		Recorder:  f.rec,
	})
	return f
}

func (f *fixture) stop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.h.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func payload(t *testing.T, msg discord.Message) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func dm(id, username, content string) discord.Message {
	return discord.Message{
		ID:        id,
		ChannelID: "chan-" + username,
		Content:   content,
		Author:    discord.User{ID: "user-" + username, Username: username},
	}
}

func TestHandler_RepliesToDM(t *testing.T) {
	f := newFixture(t, nil, StaticResponder{Reply: "hello back"})

	f.h.Dispatch(payload(t, dm("m1", "Alice", "hi")), "bot-1")
	f.stop(t)

	got := strings.Join(f.rest.methods(), ",")
	if got != "react,typing,send" {
		t.Errorf("REST calls = %q, want react,typing,send", got)
	}

	send, _ := f.rest.find("send")
	if send.channelID != "chan-Alice" || send.arg != "hello back" || send.replyTo != "m1" {
		t.Errorf("send = %+v", send)
	}
	react, _ := f.rest.find("react")
	if react.arg != "👀" || react.replyTo != "m1" {
		t.Errorf("react = %+v", react)
	}

	kinds := f.ui.kinds()
	if len(kinds) != 2 || kinds[0] != activity.KindIncoming || kinds[1] != activity.KindOutgoing {
		t.Errorf("entries = %v, want [incoming outgoing]", kinds)
	}
	if f.ui.entries[1].Author != "Bot" {
		t.Errorf("outgoing author = %q, want Bot", f.ui.entries[1].Author)
	}
	if f.rec.len() != 2 {
		t.Errorf("recorded = %d, want 2", f.rec.len())
	}
	if len(f.ui.processing) != 1 || f.ui.hidden != 1 {
		t.Errorf("processing = %v hidden = %d", f.ui.processing, f.ui.hidden)
	}
	if len(f.pub.msgs) != 1 || f.pub.msgs[0].ID != "m1" {
		t.Errorf("published = %+v", f.pub.msgs)
	}
}

func TestHandler_Filters(t *testing.T) {
	guild := dm("m2", "bob", "in a guild")
	guild.GuildID = "g1"

	bot := dm("m3", "helper", "beep")
	bot.Author.Bot = true

	self := dm("m4", "me", "echo")
	self.Author.ID = "bot-1"

	tests := []struct {
		name    string
		payload json.RawMessage
	}{
		{"malformed", json.RawMessage(`{"id":`)},
		{"guild", payload(t, guild)},
		{"bot author", payload(t, bot)},
		{"self", payload(t, self)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, StaticResponder{Reply: "x"})
			f.h.Dispatch(tt.payload, "bot-1")
			f.stop(t)

			if calls := f.rest.methods(); len(calls) != 0 {
				t.Errorf("REST calls = %v, want none", calls)
			}
			if kinds := f.ui.kinds(); len(kinds) != 0 {
				t.Errorf("entries = %v, want none", kinds)
			}
		})
	}
}

func TestHandler_Allowlist(t *testing.T) {
	f := newFixture(t, allowlist{"alice": {}}, StaticResponder{Reply: "ok"})

	f.h.Dispatch(payload(t, dm("m1", "Mallory", "let me in")), "bot-1")
	f.h.Dispatch(payload(t, dm("m2", "ALICE", "hi")), "bot-1")
	f.stop(t)

	send, ok := f.rest.find("send")
	if !ok {
		t.Fatal("expected a reply to the allowed user")
	}
	if send.replyTo != "m2" {
		t.Errorf("replied to %q, want m2", send.replyTo)
	}
	if n := len(f.rest.methods()); n != 3 {
		t.Errorf("REST calls = %d, want 3", n)
	}
}

func TestHandler_ResponderError(t *testing.T) {
	f := newFixture(t, nil, ResponderFunc(func(context.Context, discord.Message) (string, error) {
		return "", errors.New("model unavailable")
	}))

	f.h.Dispatch(payload(t, dm("m1", "alice", "hi")), "bot-1")
	f.stop(t)

	if _, ok := f.rest.find("send"); ok {
		t.Error("sent a reply after responder failure")
	}
	kinds := f.ui.kinds()
	if len(kinds) != 2 || kinds[1] != activity.KindError {
		t.Fatalf("entries = %v, want [incoming error]", kinds)
	}
	if !strings.Contains(f.ui.entries[1].Content, "model unavailable") {
		t.Errorf("error entry = %q", f.ui.entries[1].Content)
	}
	if f.ui.hidden != 1 {
		t.Errorf("hidden = %d, want 1", f.ui.hidden)
	}
}

func TestHandler_SendError(t *testing.T) {
	f := newFixture(t, nil, StaticResponder{Reply: "ok"})
	f.rest.sendErr = &discord.APIError{StatusCode: 403, Message: "Missing Access"}

	f.h.Dispatch(payload(t, dm("m1", "alice", "hi")), "bot-1")
	f.stop(t)

	kinds := f.ui.kinds()
	if len(kinds) != 2 || kinds[1] != activity.KindError {
		t.Errorf("entries = %v, want [incoming error]", kinds)
	}
}

func TestHandler_EmptyReply(t *testing.T) {
	f := newFixture(t, nil, StaticResponder{})

	f.h.Dispatch(payload(t, dm("m1", "alice", "hi")), "bot-1")
	f.stop(t)

	if _, ok := f.rest.find("send"); ok {
		t.Error("sent an empty reply")
	}
	if kinds := f.ui.kinds(); len(kinds) != 1 {
		t.Errorf("entries = %v, want only the incoming entry", kinds)
	}
}

func TestHandler_DropsWhenBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	f := newFixture(t, nil, ResponderFunc(func(ctx context.Context, _ discord.Message) (string, error) {
		started <- struct{}{}
		<-release
		return "done", nil
	}))
	f.h.cfg.Concurrency = 1
	f.h.group = newGroup(1)

	f.h.Dispatch(payload(t, dm("m1", "alice", "first")), "bot-1")
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first message never reached the responder")
	}

	f.h.Dispatch(payload(t, dm("m2", "bob", "second")), "bot-1")

	kinds := f.ui.kinds()
	if len(kinds) != 2 || kinds[1] != activity.KindError {
		t.Errorf("entries = %v, want [incoming error]", kinds)
	}

	close(release)
	f.stop(t)

	send, ok := f.rest.find("send")
	if !ok || send.replyTo != "m1" {
		t.Errorf("send = %+v, want reply to m1", send)
	}
}

func TestHandler_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := newFixture(t, nil, ResponderFunc(func(context.Context, discord.Message) (string, error) {
		<-release
		return "", nil
	}))
	f.h.Dispatch(payload(t, dm("m1", "alice", "hi")), "bot-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.h.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want deadline exceeded", err)
	}
}

func TestSink_Notifications(t *testing.T) {
	ui := &fakeUI{}
	rec := &fakeRecorder{}
	s := NewSink(ui, nil, rec, nil)

	s.NotifyStatus(gateway.PhaseConnecting, "")
	s.NotifyStatus(gateway.PhaseConnected, "Connected as relay")
	s.NotifyConnectButton("Disconnect", gateway.ButtonDanger, false)
	s.NotifyLog("Server requested reconnect...", gateway.SeveritySystem)
	s.NotifyLog("WebSocket connection error.", gateway.SeverityError)
	s.CollapseConfigurationPanel()
	s.DeliverMessageEvent(json.RawMessage(`{}`), "bot-1")

	if len(ui.statuses) != 2 || ui.statuses[1] != "connected:Connected as relay" {
		t.Errorf("statuses = %v", ui.statuses)
	}
	if len(ui.buttons) != 1 || ui.buttons[0] != "Disconnect" {
		t.Errorf("buttons = %v", ui.buttons)
	}
	if ui.collapsed != 1 {
		t.Errorf("collapsed = %d, want 1", ui.collapsed)
	}
	if len(ui.entries) != 1 || ui.entries[0].Kind != activity.KindError {
		t.Errorf("ui entries = %+v, want one error", ui.entries)
	}
	// status text, system notice, error notice
	if rec.len() != 3 {
		t.Errorf("recorded = %d, want 3", rec.len())
	}
}

func TestSink_DeliversToHandler(t *testing.T) {
	f := newFixture(t, nil, StaticResponder{Reply: "pong"})
	s := NewSink(f.ui, f.h, nil, nil)

	s.DeliverMessageEvent(payload(t, dm("m9", "alice", "ping")), "bot-1")
	f.stop(t)

	send, ok := f.rest.find("send")
	if !ok || send.arg != "pong" {
		t.Errorf("send = %+v, want pong", send)
	}
}
