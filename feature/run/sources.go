package run

import (
	"fmt"
	"net/http"

	"cardsync/core/config"
	"cardsync/core/database"
	"cardsync/core/reconcile"
	"cardsync/feature/sources"
	"cardsync/feature/sources/decklog"
	"cardsync/feature/sources/holodelta"
	"cardsync/feature/sources/official"
	"cardsync/feature/sources/sheet"
	"cardsync/feature/sources/yuyutei"

	"go.uber.org/zap"
)

// BuildSources returns the adapters enabled by d, strongest first. The
// returned close function releases the holoDelta database, if opened.
func BuildSources(cfg *config.Config, d Directives, logger *zap.Logger) ([]reconcile.Ranked, func() error, error) {
	src := cfg.Sources
	client := &http.Client{Timeout: src.Timeout()}
	scrape := sources.ScrapeConfig{
		UserAgent: cfg.Pipeline.UserAgent,
		Timeout:   src.Timeout(),
		MaxPages:  src.MaxPages,
	}

	ranked := []reconcile.Ranked{{
		Source: decklog.New(decklog.Config{
			URL:          src.DecklogURL,
			Referer:      src.DecklogReferer,
			ImageBaseURL: src.ImageBaseURL,
			MaxPages:     src.MaxPages,
		}, client, logger.Named(decklog.Name)),
		Priority: sources.PriorityDecklog,
	}}

	if d.Official {
		ranked = append(ranked, reconcile.Ranked{
			Source:   official.New(src.OfficialURL, scrape, logger.Named(official.Name)),
			Priority: sources.PriorityOfficial,
		})
	}

	closer := func() error { return nil }
	if d.Holodelta {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, closer, fmt.Errorf("failed to open holoDelta database: %w", err)
		}
		closer = func() error { return database.Close(db) }
		ranked = append(ranked, reconcile.Ranked{
			Source:   holodelta.New(db, logger.Named(holodelta.Name)),
			Priority: sources.PriorityHolodelta,
		})
	}

	if d.Sheet {
		ranked = append(ranked, reconcile.Ranked{
			Source:   sheet.New(src.SheetURL, client, logger.Named(sheet.Name)),
			Priority: sources.PrioritySheet,
		})
	}

	if d.Yuyutei {
		ranked = append(ranked, reconcile.Ranked{
			Source:   yuyutei.New(src.YuyuteiURL, scrape, logger.Named(yuyutei.Name)),
			Priority: sources.PriorityYuyutei,
		})
	}
	return ranked, closer, nil
}
