package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                    string
	DatabaseURL            string
	DiscordToken           string
	DiscordGuildID         string
	DiscordVCID            string
	ReportTimezone         string
	InactivityQuietSeconds int
	JoinLogChannelID       string
	LeaveLogChannelID      string
	TotalsChannelID        string
	TotalsWebhookURL       string
	MetricsAddr            string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE is invalid: %w", err)
	}
	if c.InactivityQuietSeconds <= 0 {
		return fmt.Errorf("INACTIVITY_QUIET_SECONDS must be positive, got %d", c.InactivityQuietSeconds)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "DISCORD_VC_ID", value: c.DiscordVCID},
		{name: "REPORT_TIMEZONE", value: c.ReportTimezone},
		{name: "DISCORD_JOIN_LOG_CHANNEL_ID", value: c.JoinLogChannelID},
		{name: "DISCORD_LEAVE_LOG_CHANNEL_ID", value: c.LeaveLogChannelID},
	}
}

// ReportLocation returns the reporting timezone. Only valid after Validate.
func (c *Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) InactivityQuietDuration() time.Duration {
	return time.Duration(c.InactivityQuietSeconds) * time.Second
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
