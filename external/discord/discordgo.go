package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/thanwa/voicetally/internal/discord"
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)
	s.State.TrackVoice = true
	s.State.TrackMembers = true
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if vs == nil {
			return
		}
		if vs.GuildID == "" || vs.UserID == "" {
			return
		}
		beforeChannelID := ""
		if vs.BeforeUpdate != nil {
			beforeChannelID = vs.BeforeUpdate.ChannelID
		}
		handler(discordpkg.VoiceStateEvent{
			GuildID:         vs.GuildID,
			GuildName:       c.resolveGuildName(vs.GuildID),
			UserID:          vs.UserID,
			DisplayName:     c.resolveDisplayName(vs.GuildID, vs.UserID, vs.VoiceState),
			BeforeChannelID: beforeChannelID,
			AfterChannelID:  vs.ChannelID,
			SelfMute:        vs.SelfMute,
			SelfDeaf:        vs.SelfDeaf,
			ServerMute:      vs.Mute,
			ServerDeaf:      vs.Deaf,
		})
	})
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) resolveGuildName(guildID string) string {
	guild := c.resolveGuild(guildID)
	if guild == nil {
		slog.Warn("discord guild name could not be resolved; using guild id fallback", "guild_id", guildID)
		return guildID
	}
	return guild.Name
}

func (c *Client) resolveGuild(guildID string) *discordgo.Guild {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil && guild.Name != "" {
			return guild
		}
	}
	guild, err := c.session.Guild(guildID)
	if err != nil || guild == nil {
		return nil
	}
	if guild.Name == "" {
		return nil
	}
	return guild
}

func (c *Client) resolveDisplayName(guildID, userID string, state *discordgo.VoiceState) string {
	if state != nil && state.Member != nil {
		if state.Member.Nick != "" {
			return state.Member.Nick
		}
		if state.Member.User != nil {
			return preferredDiscordName(state.Member.User.GlobalName, state.Member.User.Username, userID)
		}
	}

	member := c.resolveGuildMember(guildID, userID)
	if member != nil {
		if member.Nick != "" {
			return member.Nick
		}
		if member.User != nil {
			return preferredDiscordName(member.User.GlobalName, member.User.Username, userID)
		}
	}

	u, err := c.session.User(userID)
	if err == nil && u != nil {
		return preferredDiscordName(u.GlobalName, u.Username, userID)
	}
	return userID
}

func (c *Client) resolveGuildMember(guildID, userID string) *discordgo.Member {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return member
		}
	}
	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	return member
}

func preferredDiscordName(globalName, username, fallback string) string {
	if globalName != "" {
		return globalName
	}
	if username != "" {
		return username
	}
	return fallback
}

func (c *Client) Run() error {
	select {}
}
