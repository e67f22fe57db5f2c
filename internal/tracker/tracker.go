package tracker

import (
	"context"
	"log/slog"

	"github.com/thanwa/voicetally/internal/config"
	"github.com/thanwa/voicetally/internal/discord"
	"github.com/thanwa/voicetally/internal/metrics"
	"github.com/thanwa/voicetally/internal/repository"
	"github.com/thanwa/voicetally/internal/webhook"
)

// Tracker receives raw voice-state transitions, classifies them into session
// opens and closes, and drives the registry, watchdog and aggregator. Every
// failure past classification is terminal where it occurs: logged, counted,
// never propagated to the gateway.
type Tracker struct {
	cfg      *config.Config
	repo     repository.Repository
	discord  discord.Client
	webhook  webhook.Sender
	clock    *Clock
	registry *Registry
	watchdog *Watchdog
	agg      *Aggregator
	locks    *userLocks

	botUserID string
}

func NewTracker(cfg *config.Config, repo repository.Repository, dc discord.Client, wh webhook.Sender) *Tracker {
	clock := NewClock(cfg.ReportLocation())
	registry := NewRegistry()
	t := &Tracker{
		cfg:      cfg,
		repo:     repo,
		discord:  dc,
		webhook:  wh,
		clock:    clock,
		registry: registry,
		agg:      NewAggregator(repo, clock),
		locks:    newUserLocks(),
	}
	t.watchdog = NewWatchdog(registry, t.onStillSilent)
	return t
}

func (t *Tracker) SetBotUserID(id string) {
	t.botUserID = id
}

// HandleVoiceStateUpdate is the entry point invoked by the gateway adapter.
func (t *Tracker) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling voice state update", "panic", r, "user_id", event.UserID)
		}
	}()

	if event.GuildID != t.cfg.DiscordGuildID {
		slog.Debug("ignoring voice event for different guild", "event_guild_id", event.GuildID, "configured_guild_id", t.cfg.DiscordGuildID)
		return
	}
	if event.UserID == "" {
		slog.Warn("dropping voice event without user id", "guild_id", event.GuildID)
		metrics.AnomaliesTotal.WithLabelValues("malformed_transition").Inc()
		return
	}
	if t.botUserID != "" && event.UserID == t.botUserID {
		return
	}

	defer t.locks.lock(event.UserID).Unlock()

	switch {
	case t.isOpen(event):
		t.handleOpen(event)
	case t.isClose(event):
		t.handleClose(event)
	default:
		t.handleNoop(event)
	}
	metrics.OpenSessions.Set(float64(t.registry.Len()))
}

// isOpen reports whether the user's membership becomes the monitored channel,
// from absent or from a different channel.
func (t *Tracker) isOpen(e discord.VoiceStateEvent) bool {
	return e.AfterChannelID == t.cfg.DiscordVCID && e.BeforeChannelID != t.cfg.DiscordVCID
}

// isClose reports whether the user's membership becomes absent while it was
// the monitored channel. Moves to another channel produce no leave event; the
// eventual rejoin surfaces as a replacement anomaly instead.
func (t *Tracker) isClose(e discord.VoiceStateEvent) bool {
	return e.BeforeChannelID == t.cfg.DiscordVCID && e.AfterChannelID == ""
}

func (t *Tracker) handleOpen(event discord.VoiceStateEvent) {
	openedAt := t.clock.Now()
	speaking := event.AudioActive()
	sess := &Session{
		UserID:         event.UserID,
		DisplayName:    event.DisplayName,
		OpenedAt:       openedAt,
		SpeakingAtOpen: speaking,
	}

	if prev := t.registry.Open(event.UserID, sess); prev != nil {
		// Missed leave event, usually a gateway reconnect. The stale
		// session's duration cannot be reconstructed and is dropped.
		t.watchdog.Disarm(event.UserID)
		slog.Warn("replacing stale open session; its duration is dropped",
			"user_id", event.UserID, "display_name", event.DisplayName, "stale_opened_at", prev.OpenedAt)
		metrics.AnomaliesTotal.WithLabelValues("replaced_session").Inc()
	}
	metrics.PresenceEventsTotal.WithLabelValues(string(repository.PresenceActionJoin)).Inc()
	slog.Info("session opened", "user_id", event.UserID, "display_name", event.DisplayName, "speaking", speaking, "server_name", event.GuildName)

	t.persistPresenceEvent(repository.InsertPresenceEventInput{
		UserID:      event.UserID,
		DisplayName: event.DisplayName,
		Action:      repository.PresenceActionJoin,
		Speaking:    speaking,
		OccurredAt:  openedAt,
		ServerName:  event.GuildName,
	})
	t.notify(t.cfg.JoinLogChannelID, joinMessage(event.DisplayName, openedAt, event.GuildName, speaking))

	if speaking {
		slog.Info("user is audio-active; inactivity watchdog not armed", "user_id", event.UserID)
		return
	}
	t.watchdog.Arm(event.UserID, t.cfg.InactivityQuietDuration())
}

func (t *Tracker) handleClose(event discord.VoiceStateEvent) {
	closedAt := t.clock.Now()
	sess, ok := t.registry.Close(event.UserID)
	if !ok {
		// Missed join event, e.g. the user entered while the process was
		// down. No duration can be recorded.
		slog.Warn("leave event for user with no open session", "user_id", event.UserID, "display_name", event.DisplayName)
		metrics.AnomaliesTotal.WithLabelValues("orphan_close").Inc()
		return
	}
	t.watchdog.Disarm(event.UserID)
	metrics.PresenceEventsTotal.WithLabelValues(string(repository.PresenceActionLeave)).Inc()

	speaking := event.AudioActive()
	slog.Info("session closed", "user_id", event.UserID, "display_name", event.DisplayName, "opened_at", sess.OpenedAt, "closed_at", closedAt)

	t.persistPresenceEvent(repository.InsertPresenceEventInput{
		UserID:      event.UserID,
		DisplayName: event.DisplayName,
		Action:      repository.PresenceActionLeave,
		Speaking:    speaking,
		OccurredAt:  closedAt,
		ServerName:  event.GuildName,
	})

	total := t.agg.RecordSession(context.Background(), event.UserID, event.DisplayName, sess.OpenedAt, closedAt, event.GuildName)

	t.notify(t.cfg.LeaveLogChannelID, leaveMessage(event.DisplayName, closedAt, event.GuildName, speaking))
	if t.cfg.TotalsChannelID != "" {
		t.notify(t.cfg.TotalsChannelID, totalMessage(event.DisplayName, SplitSeconds(total.TotalSeconds)))
	}
	t.sendTotalsWebhook(total)
}

func (t *Tracker) handleNoop(event discord.VoiceStateEvent) {
	inChannel := event.BeforeChannelID == t.cfg.DiscordVCID && event.AfterChannelID == t.cfg.DiscordVCID
	if inChannel && event.Muted() {
		slog.Info("user muted or deafened in monitored channel", "user_id", event.UserID, "display_name", event.DisplayName)
		return
	}
	slog.Debug("ignoring transition that does not change monitored-channel membership",
		"user_id", event.UserID, "before_channel_id", event.BeforeChannelID, "after_channel_id", event.AfterChannelID)
}

func (t *Tracker) onStillSilent(s *Session) {
	slog.Info("user still silent after quiet interval", "user_id", s.UserID, "display_name", s.DisplayName, "opened_at", s.OpenedAt)
	metrics.SilentSessionsTotal.Inc()
}

func (t *Tracker) persistPresenceEvent(input repository.InsertPresenceEventInput) {
	if err := t.repo.InsertPresenceEvent(context.Background(), input); err != nil {
		slog.Error("failed to persist presence event", "error", err, "user_id", input.UserID, "action", string(input.Action))
		metrics.PersistenceErrorsTotal.WithLabelValues("insert_presence_event").Inc()
	}
}

func (t *Tracker) notify(channelID, content string) {
	if channelID == "" {
		return
	}
	if err := t.discord.SendChannelMessage(channelID, content); err != nil {
		slog.Error("failed to send notification", "error", err, "channel_id", channelID)
	}
}

func (t *Tracker) sendTotalsWebhook(total *repository.DailyTotal) {
	if err := t.webhook.SendDailyTotal(context.Background(), webhook.DailyTotalPayload{
		UserID:       total.UserID,
		DisplayName:  total.DisplayName,
		Day:          total.Day,
		TotalSeconds: total.TotalSeconds,
		ServerName:   total.ServerName,
	}); err != nil {
		slog.Error("failed to send daily total webhook", "error", err, "user_id", total.UserID, "day", total.Day)
	}
}
