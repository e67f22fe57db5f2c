package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/thanwa/voicetally/internal/config"
)

type envConfig struct {
	Env                    string `env:"ENV" envDefault:"production"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	DiscordToken           string `env:"DISCORD_TOKEN,required"`
	DiscordGuildID         string `env:"DISCORD_GUILD_ID,required"`
	DiscordVCID            string `env:"DISCORD_VC_ID,required"`
	ReportTimezone         string `env:"REPORT_TIMEZONE" envDefault:"Asia/Bangkok"`
	InactivityQuietSeconds int    `env:"INACTIVITY_QUIET_SECONDS" envDefault:"5"`
	JoinLogChannelID       string `env:"DISCORD_JOIN_LOG_CHANNEL_ID,required"`
	LeaveLogChannelID      string `env:"DISCORD_LEAVE_LOG_CHANNEL_ID,required"`
	TotalsChannelID        string `env:"DISCORD_TOTALS_CHANNEL_ID"`
	TotalsWebhookURL       string `env:"TOTALS_WEBHOOK_URL"`
	MetricsAddr            string `env:"METRICS_ADDR"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                    raw.Env,
		DatabaseURL:            raw.DatabaseURL,
		DiscordToken:           raw.DiscordToken,
		DiscordGuildID:         raw.DiscordGuildID,
		DiscordVCID:            raw.DiscordVCID,
		ReportTimezone:         raw.ReportTimezone,
		InactivityQuietSeconds: raw.InactivityQuietSeconds,
		JoinLogChannelID:       raw.JoinLogChannelID,
		LeaveLogChannelID:      raw.LeaveLogChannelID,
		TotalsChannelID:        raw.TotalsChannelID,
		TotalsWebhookURL:       raw.TotalsWebhookURL,
		MetricsAddr:            raw.MetricsAddr,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
