package directory

import (
	"context"
	"strings"

	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

// DefaultSiteConfig is served until a config document is written.
var DefaultSiteConfig = SiteConfig{Title: "Sitedir"}

func (s *Service) GetConfig(ctx context.Context) (SiteConfig, error) {
	cfg, rev, err := mutate.ReadJSON[SiteConfig](ctx, s.mut.Store(), PathConfig)
	if err != nil {
		return SiteConfig{}, err
	}
	if rev == "" {
		return DefaultSiteConfig, nil
	}
	return cfg, nil
}

func (s *Service) UpdateConfig(ctx context.Context, cfg SiteConfig) (SiteConfig, error) {
	cfg.Title = strings.TrimSpace(cfg.Title)
	if err := validateStruct(cfg); err != nil {
		return SiteConfig{}, err
	}

	_, err := mutate.JSON(ctx, s.mut, PathConfig, func(cur *SiteConfig) error {
		if *cur == cfg {
			return mutate.ErrNoChange
		}
		*cur = cfg
		return nil
	})
	if err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}
