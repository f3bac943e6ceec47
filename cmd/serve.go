package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/spotthebot/internal/auth"
	"github.com/robalobadob/spotthebot/internal/httpserver"
	"github.com/robalobadob/spotthebot/internal/round"
	"github.com/robalobadob/spotthebot/internal/session"
	"github.com/robalobadob/spotthebot/internal/snippet"
	"github.com/robalobadob/spotthebot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// runServe opens the store, seeds the corpus if needed, and serves HTTP.
func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	corpus, err := snippet.Load(cfg.SnippetsFile)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	snippets := store.NewSnippets(db, cfg.SnippetSalt)
	if n, err := snippets.Count(ctx); err != nil {
		return fmt.Errorf("count snippets: %w", err)
	} else if n == 0 {
		imported, err := snippets.Import(ctx, corpus)
		if err != nil {
			return fmt.Errorf("seed snippets: %w", err)
		}
		log.Info().Int("snippets", imported).Msg("seeded corpus")
	}

	// Rounds live in memory; anything still live in the journal died with the last process.
	journal := store.NewJournal(db)
	if n, err := journal.AbandonAllLive(ctx, time.Now()); err != nil {
		log.Warn().Err(err).Msg("abandon stale rounds")
	} else if n > 0 {
		log.Info().Int64("rounds", n).Msg("marked stale rounds abandoned")
	}

	identity, err := session.NewMarkers(cfg.IdentityDir)
	if err != nil {
		return err
	}

	users := store.NewUsers(db)
	markers := store.NewMarkers(db)
	engine := round.NewEngine(round.Deps{
		Users:    users,
		Stats:    users,
		Snippets: snippets,
		Markers:  markers,
		Journal:  journal,
	}, cfg.Round)

	srv := httpserver.New(httpserver.Deps{
		Engine:   engine,
		Rounds:   store.NewMemoryRounds(),
		Users:    users,
		Markers:  markers,
		Journal:  journal,
		Corpus:   corpus,
		Signer:   auth.NewSigner(cfg.JWTSecret, cfg.JWTExpiresDays),
		Cookies:  auth.Cookies{Name: cfg.CookieName, Secure: cfg.Production},
		Identity: identity,
		Origin:   cfg.ClientOrigin,
	})

	log.Info().
		Str("port", cfg.Port).
		Str("db", cfg.DatabasePath).
		Str("mode", cfg.Round.Mode.String()).
		Int("maxPoints", engine.Config().MaxPoints).
		Msg("starting spotthebot server")
	return srv.Start(":" + cfg.Port)
}
