// Command sync runs one match sync pass against the upstream API and prints
// a fetched/cleaned/synced summary. Per-record skips never fail the run;
// only missing configuration or an unreachable store does.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/cache"
	"esports_v1/ingestion/internal/client"
	"esports_v1/ingestion/internal/config"
	"esports_v1/ingestion/internal/logging"
	"esports_v1/ingestion/internal/repository"
	"esports_v1/ingestion/internal/syncer"
)

type options struct {
	games   []string
	window  client.Window
	limit   int
	page    int
	players bool
	stats   bool
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	game := fs.String("game", "valorant", "game to sync: valorant, csgo or lol")
	allGames := fs.Bool("all-games", false, "sync every supported game")
	limit := fs.Int("limit", 0, "matches to fetch per game (default BATCH_SIZE)")
	past := fs.Bool("past", false, "sync finished matches instead of upcoming")
	running := fs.Bool("running", false, "sync matches in progress instead of upcoming")
	page := fs.Int("page", 1, "page of past matches")
	players := fs.Bool("players", false, "also load rosters for teams without players")
	stats := fs.Bool("stats", false, "also extract stats for finished matches")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		window:  client.WindowUpcoming,
		limit:   *limit,
		page:    1,
		players: *players,
		stats:   *stats,
	}

	switch {
	case *past && *running:
		return options{}, errors.New("-past and -running are mutually exclusive")
	case *past:
		opts.window = client.WindowPast
		opts.page = *page
	case *running:
		opts.window = client.WindowRunning
	}

	if *allGames {
		opts.games = config.SupportedGames
	} else {
		if !config.IsSupportedGame(*game) {
			return options{}, errors.Newf("unsupported game %q", *game)
		}
		opts.games = []string{*game}
	}

	if opts.limit < 0 || opts.page < 1 {
		return options{}, errors.New("-limit must be >= 0 and -page >= 1")
	}

	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: sync [-game valorant|csgo|lol | -all-games] [-limit n] [-past [-page n] | -running] [-players] [-stats]")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	if opts.limit == 0 {
		opts.limit = cfg.BatchSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDatabase(ctx, repository.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	api := client.NewClient(cfg.PandaScoreBaseURL, cfg.PandaScoreToken, cfg.PandaScoreTimeout, cfg.PandaScoreMaxRetries)

	engineOpts := []syncer.Option{syncer.WithPlayerDelay(cfg.PlayerSyncDelay)}
	if opts.players && cfg.RedisEnabled() {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			engineOpts = append(engineOpts, syncer.WithRosterCache(cache.NewRosterCache(redisCache, cfg.RosterCacheTTL)))
		}
	}
	engine := syncer.NewEngine(db, api, engineOpts...)

	start := time.Now()
	results := make([]syncer.Result, 0, len(opts.games))
	for _, game := range opts.games {
		res, err := engine.SyncGame(ctx, syncer.SyncRequest{
			GameSlug: game,
			Window:   opts.window,
			Limit:    opts.limit,
			Page:     opts.page,
		})
		if err != nil {
			log.Fatal().Err(err).Str("game", game).Msg("Sync aborted")
		}
		results = append(results, res)
	}
	printSummary(os.Stdout, results)

	if opts.players {
		res, err := engine.SyncPlayers(ctx, cfg.PlayerTeamLimit)
		if err != nil {
			log.Error().Err(err).Msg("Player sync failed")
		}
		fmt.Printf("Players: %d saved for %d of %d teams (%d empty, %d failed, %d cached)\n",
			res.Players, res.TeamsSynced, res.Teams, res.EmptyTeams, res.Failed, res.CacheHits)
	}

	if opts.stats {
		res, err := engine.SyncMatchStats(ctx, cfg.StatsLimit, cfg.StatsBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("Match stats sync failed")
		}
		fmt.Printf("Match stats: %d rows from %d matches (%d skipped, %d rows failed)\n",
			res.Inserted, res.Processed, res.Skipped, res.FailedRows)
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Sync run complete")
}

func printSummary(w io.Writer, results []syncer.Result) {
	var fetched, cleaned, rejected, synced, failed int

	for _, r := range results {
		fmt.Fprintf(w, "%-10s %-8s fetched=%d cleaned=%d rejected=%d synced=%d failed=%d\n",
			r.Game, r.Window, r.Fetched, r.Cleaned, r.Rejected, r.Synced, r.Failed)
		if r.FetchErr != nil {
			fmt.Fprintf(w, "%-10s fetch failed, nothing synced: %v\n", r.Game, r.FetchErr)
		}

		fetched += r.Fetched
		cleaned += r.Cleaned
		rejected += r.Rejected
		synced += r.Synced
		failed += r.Failed
	}

	fmt.Fprintf(w, "Total: games=%d fetched=%d cleaned=%d rejected=%d synced=%d failed=%d\n",
		len(results), fetched, cleaned, rejected, synced, failed)
}
