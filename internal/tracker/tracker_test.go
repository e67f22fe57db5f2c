package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thanwa/voicetally/internal/config"
	"github.com/thanwa/voicetally/internal/discord"
	"github.com/thanwa/voicetally/internal/repository"
	"github.com/thanwa/voicetally/internal/webhook"
)

type mockRepository struct {
	mu             sync.Mutex
	presenceEvents []repository.InsertPresenceEventInput
	addCalls       []repository.AddToDailyTotalInput
	totals         map[string]*repository.DailyTotal
	insertErr      error
	upsertErr      error
}

func newMockRepository() *mockRepository {
	return &mockRepository{totals: make(map[string]*repository.DailyTotal)}
}

func (m *mockRepository) InsertPresenceEvent(_ context.Context, input repository.InsertPresenceEventInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.presenceEvents = append(m.presenceEvents, input)
	return nil
}

func (m *mockRepository) AddToDailyTotal(_ context.Context, input repository.AddToDailyTotalInput) (*repository.DailyTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.addCalls = append(m.addCalls, input)
	key := input.UserID + "|" + input.Day
	t, ok := m.totals[key]
	if !ok {
		t = &repository.DailyTotal{
			ID:     key,
			UserID: input.UserID,
			Day:    input.Day,
		}
		m.totals[key] = t
	}
	t.TotalSeconds += input.AddSeconds
	t.DisplayName = input.DisplayName
	t.ServerName = input.ServerName
	copied := *t
	return &copied, nil
}

func (m *mockRepository) GetDailyTotal(_ context.Context, userID, day string) (*repository.DailyTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.totals[userID+"|"+day]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *mockRepository) totalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.totals)
}

func (m *mockRepository) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.presenceEvents)
}

type sentMessage struct {
	channelID string
	content   string
}

type mockDiscordClient struct {
	mu    sync.Mutex
	sends []sentMessage
}

func (m *mockDiscordClient) Connect(_ context.Context) error { return nil }
func (m *mockDiscordClient) Close() error                    { return nil }
func (m *mockDiscordClient) SendChannelMessage(channelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentMessage{channelID: channelID, content: content})
	return nil
}
func (m *mockDiscordClient) RegisterVoiceStateUpdateHandler(_ func(discord.VoiceStateEvent)) {}
func (m *mockDiscordClient) GetBotUserID() (string, error)                                  { return "bot-self", nil }
func (m *mockDiscordClient) Run() error                                                     { return nil }

func (m *mockDiscordClient) sentTo(channelID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sends {
		if s.channelID == channelID {
			out = append(out, s.content)
		}
	}
	return out
}

type mockWebhookSender struct {
	mu       sync.Mutex
	payloads []webhook.DailyTotalPayload
}

func (m *mockWebhookSender) SendDailyTotal(_ context.Context, payload webhook.DailyTotalPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                    "test",
		DiscordGuildID:         "guild-1",
		DiscordVCID:            "vc-1",
		ReportTimezone:         "Asia/Bangkok",
		InactivityQuietSeconds: 1,
		JoinLogChannelID:       "join-log",
		LeaveLogChannelID:      "leave-log",
		TotalsChannelID:        "totals",
	}
}

func newTestTracker(repo repository.Repository, dc discord.Client, wh webhook.Sender) *Tracker {
	trk := NewTracker(testConfig(), repo, dc, wh)
	trk.SetBotUserID("bot-self")
	return trk
}

// setClock pins the tracker's notion of now; tests advance it between events.
func setClock(trk *Tracker, at *time.Time) {
	trk.clock.now = func() time.Time { return *at }
}

func bangkok(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	return loc
}

func joinEvent(userID string) discord.VoiceStateEvent {
	return discord.VoiceStateEvent{
		GuildID:        "guild-1",
		GuildName:      "My Server",
		UserID:         userID,
		DisplayName:    "User " + userID,
		AfterChannelID: "vc-1",
	}
}

func leaveEvent(userID string) discord.VoiceStateEvent {
	return discord.VoiceStateEvent{
		GuildID:         "guild-1",
		GuildName:       "My Server",
		UserID:          userID,
		DisplayName:     "User " + userID,
		BeforeChannelID: "vc-1",
	}
}

func TestHandleVoiceStateUpdate_IgnoresOtherGuild(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	ev := joinEvent("user-1")
	ev.GuildID = "guild-2"
	trk.HandleVoiceStateUpdate(ev)

	if repo.eventCount() != 0 {
		t.Fatalf("expected no repository writes, got %d", repo.eventCount())
	}
	if trk.registry.Len() != 0 {
		t.Fatal("expected no session to be opened")
	}
}

func TestHandleVoiceStateUpdate_IgnoresOwnBotUser(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	trk.HandleVoiceStateUpdate(joinEvent("bot-self"))

	if trk.registry.Len() != 0 {
		t.Fatal("expected bot's own voice state to be ignored")
	}
}

func TestHandleVoiceStateUpdate_OpenRegistersPersistsAndNotifies(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	ev := joinEvent("user-1")
	ev.SelfMute = true
	trk.HandleVoiceStateUpdate(ev)

	sess, ok := trk.registry.Get("user-1")
	if !ok {
		t.Fatal("expected an open session")
	}
	if sess.SpeakingAtOpen {
		t.Fatal("expected muted user to be recorded as not speaking")
	}
	if repo.eventCount() != 1 {
		t.Fatalf("expected one presence event, got %d", repo.eventCount())
	}
	got := repo.presenceEvents[0]
	if got.Action != repository.PresenceActionJoin || got.UserID != "user-1" || got.ServerName != "My Server" {
		t.Fatalf("unexpected join record: %+v", got)
	}
	joins := dc.sentTo("join-log")
	if len(joins) != 1 || !strings.Contains(joins[0], "joined the voice channel") {
		t.Fatalf("unexpected join notifications: %+v", joins)
	}
	if !trk.watchdog.armed("user-1") {
		t.Fatal("expected watchdog armed for silent user")
	}
}

func TestHandleVoiceStateUpdate_OpenSkipsWatchdogWhenSpeaking(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	trk.HandleVoiceStateUpdate(joinEvent("user-1"))

	if trk.watchdog.armed("user-1") {
		t.Fatal("expected no watchdog timer for audio-active user")
	}
}

func TestHandleVoiceStateUpdate_MuteToggleInChannelIsNoop(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	trk.HandleVoiceStateUpdate(joinEvent("user-1"))

	toggle := joinEvent("user-1")
	toggle.BeforeChannelID = "vc-1"
	toggle.SelfMute = true
	trk.HandleVoiceStateUpdate(toggle)

	if repo.eventCount() != 1 {
		t.Fatalf("expected only the original join to be persisted, got %d", repo.eventCount())
	}
	sess, ok := trk.registry.Get("user-1")
	if !ok || sess.SpeakingAtOpen != true {
		t.Fatal("expected original session to be untouched by mute toggle")
	}
}

func TestHandleVoiceStateUpdate_OrphanCloseIsRecoverable(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	trk.HandleVoiceStateUpdate(leaveEvent("user-b"))

	if repo.eventCount() != 0 {
		t.Fatalf("expected no presence events for orphan close, got %d", repo.eventCount())
	}
	if repo.totalCount() != 0 {
		t.Fatal("expected no daily total for orphan close")
	}
	if len(dc.sends) != 0 {
		t.Fatalf("expected no notifications for orphan close, got %+v", dc.sends)
	}
}

func TestHandleVoiceStateUpdate_ReplacementDiscardsStaleSession(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	loc := bangkok(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	setClock(trk, &now)

	trk.HandleVoiceStateUpdate(joinEvent("user-1"))
	firstOpenedAt := now

	now = now.Add(10 * time.Minute)
	trk.HandleVoiceStateUpdate(joinEvent("user-1"))

	if trk.registry.Len() != 1 {
		t.Fatalf("expected exactly one open session, got %d", trk.registry.Len())
	}
	sess, _ := trk.registry.Get("user-1")
	if !sess.OpenedAt.After(firstOpenedAt) {
		t.Fatalf("expected replacement session with new openedAt, got %v", sess.OpenedAt)
	}
	if repo.totalCount() != 0 {
		t.Fatal("expected no daily total from the discarded session")
	}
}

func TestHandleVoiceStateUpdate_CloseRecordsTotalAndNotifies(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	wh := &mockWebhookSender{}
	trk := newTestTracker(repo, dc, wh)

	loc := bangkok(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	setClock(trk, &now)

	trk.HandleVoiceStateUpdate(joinEvent("user-a"))
	now = time.Date(2024, 1, 1, 10, 5, 30, 0, loc)
	trk.HandleVoiceStateUpdate(leaveEvent("user-a"))

	total, err := repo.GetDailyTotal(context.Background(), "user-a", "2024-01-01")
	if err != nil || total == nil {
		t.Fatalf("expected a daily total, got %v, %v", total, err)
	}
	if total.TotalSeconds != 330 {
		t.Fatalf("expected 330 seconds, got %d", total.TotalSeconds)
	}

	leaves := dc.sentTo("leave-log")
	if len(leaves) != 1 || !strings.Contains(leaves[0], "left the voice channel") {
		t.Fatalf("unexpected leave notifications: %+v", leaves)
	}
	totals := dc.sentTo("totals")
	if len(totals) != 1 || !strings.Contains(totals[0], "0 hours, 5 minutes, 30 seconds") {
		t.Fatalf("unexpected totals notifications: %+v", totals)
	}
	if len(wh.payloads) != 1 || wh.payloads[0].TotalSeconds != 330 {
		t.Fatalf("unexpected webhook payloads: %+v", wh.payloads)
	}
	if _, ok := trk.registry.Get("user-a"); ok {
		t.Fatal("expected session to be removed after close")
	}
}

func TestHandleVoiceStateUpdate_SecondSessionSameDayAccumulates(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	loc := bangkok(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	setClock(trk, &now)

	trk.HandleVoiceStateUpdate(joinEvent("user-a"))
	now = time.Date(2024, 1, 1, 10, 5, 30, 0, loc)
	trk.HandleVoiceStateUpdate(leaveEvent("user-a"))

	now = time.Date(2024, 1, 1, 10, 10, 0, 0, loc)
	trk.HandleVoiceStateUpdate(joinEvent("user-a"))
	now = time.Date(2024, 1, 1, 10, 10, 10, 0, loc)
	trk.HandleVoiceStateUpdate(leaveEvent("user-a"))

	if repo.totalCount() != 1 {
		t.Fatalf("expected a single daily total record, got %d", repo.totalCount())
	}
	total, _ := repo.GetDailyTotal(context.Background(), "user-a", "2024-01-01")
	if total.TotalSeconds != 340 {
		t.Fatalf("expected 340 seconds, got %d", total.TotalSeconds)
	}
}

func TestHandleVoiceStateUpdate_NoTotalsNotificationWithoutChannel(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})
	trk.cfg.TotalsChannelID = ""

	loc := bangkok(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	setClock(trk, &now)

	trk.HandleVoiceStateUpdate(joinEvent("user-a"))
	now = now.Add(time.Minute)
	trk.HandleVoiceStateUpdate(leaveEvent("user-a"))

	if got := dc.sentTo("totals"); len(got) != 0 {
		t.Fatalf("expected no totals notification, got %+v", got)
	}
	if got := dc.sentTo("leave-log"); len(got) != 1 {
		t.Fatalf("expected leave notification regardless, got %+v", got)
	}
}

func TestHandleVoiceStateUpdate_PersistenceFailureDoesNotLoseSession(t *testing.T) {
	repo := newMockRepository()
	repo.insertErr = errors.New("db down")
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	trk.HandleVoiceStateUpdate(joinEvent("user-1"))

	if _, ok := trk.registry.Get("user-1"); !ok {
		t.Fatal("expected in-memory session despite persistence failure")
	}
	if got := dc.sentTo("join-log"); len(got) != 1 {
		t.Fatalf("expected join notification despite persistence failure, got %+v", got)
	}
}

func TestHandleVoiceStateUpdate_ConcurrentEventsForDistinctUsers(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	var wg sync.WaitGroup
	users := []string{"user-1", "user-2", "user-3", "user-4"}
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			trk.HandleVoiceStateUpdate(joinEvent(userID))
			trk.HandleVoiceStateUpdate(leaveEvent(userID))
		}(u)
	}
	wg.Wait()

	if trk.registry.Len() != 0 {
		t.Fatalf("expected all sessions closed, got %d open", trk.registry.Len())
	}
	if repo.eventCount() != len(users)*2 {
		t.Fatalf("expected %d presence events, got %d", len(users)*2, repo.eventCount())
	}
}

func TestHandleVoiceStateUpdate_ConcurrentEventsForSameUser(t *testing.T) {
	repo := newMockRepository()
	dc := &mockDiscordClient{}
	trk := newTestTracker(repo, dc, &mockWebhookSender{})

	const rounds = 16
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trk.HandleVoiceStateUpdate(joinEvent("user-1"))
			trk.HandleVoiceStateUpdate(leaveEvent("user-1"))
		}()
	}
	wg.Wait()

	open := trk.registry.Len()
	if open > 1 {
		t.Fatalf("expected at most one open session, got %d", open)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	var joins, leaves int
	for _, ev := range repo.presenceEvents {
		switch ev.Action {
		case repository.PresenceActionJoin:
			joins++
		case repository.PresenceActionLeave:
			leaves++
		}
	}
	if joins != rounds {
		t.Fatalf("expected every join to be persisted, got %d of %d", joins, rounds)
	}
	if len(repo.addCalls) != leaves {
		t.Fatalf("expected one daily-total write per closed session, got %d writes for %d leaves", len(repo.addCalls), leaves)
	}
	if leaves+open > joins {
		t.Fatalf("closed %d plus still-open %d sessions exceed %d joins", leaves, open, joins)
	}
}
