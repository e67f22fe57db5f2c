package discord

import "context"

// VoiceStateEvent is a normalized membership change for one user, as delivered
// by the gateway. BeforeChannelID and AfterChannelID are empty when the user
// was/is not in any voice channel.
type VoiceStateEvent struct {
	GuildID         string
	GuildName       string
	UserID          string
	DisplayName     string
	BeforeChannelID string
	AfterChannelID  string
	SelfMute        bool
	SelfDeaf        bool
	ServerMute      bool
	ServerDeaf      bool
}

// AudioActive reports whether the user can currently be heard.
func (e VoiceStateEvent) AudioActive() bool {
	return !e.SelfMute && !e.SelfDeaf && !e.ServerMute && !e.ServerDeaf
}

// Muted reports whether the user is muted or deafened in any way.
func (e VoiceStateEvent) Muted() bool {
	return !e.AudioActive()
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	SendChannelMessage(channelID, content string) error
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	GetBotUserID() (string, error)
	Run() error
}
