package tracker

import (
	"github.com/samber/do/v2"
	"github.com/thanwa/voicetally/internal/config"
	"github.com/thanwa/voicetally/internal/discord"
	"github.com/thanwa/voicetally/internal/repository"
	"github.com/thanwa/voicetally/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Tracker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		dc := do.MustInvoke[discord.Client](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewTracker(cfg, repo, dc, wh), nil
	})
}
