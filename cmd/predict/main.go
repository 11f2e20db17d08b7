// Command predict writes match predictions from stored history.
//
// By default it predicts upcoming matches that have none yet. -finished runs
// the backtest over finished matches, and -recompute overwrites predictions
// already stored on them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/config"
	"esports_v1/ingestion/internal/logging"
	"esports_v1/ingestion/internal/predictor"
	"esports_v1/ingestion/internal/repository"
)

type options struct {
	limit     int
	finished  bool
	recompute bool
	matchID   int64
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	fs.IntVar(&opts.limit, "limit", 0, "matches to predict (default PREDICT_LIMIT)")
	fs.BoolVar(&opts.finished, "finished", false, "predict finished matches and report backtest accuracy")
	fs.BoolVar(&opts.recompute, "recompute", false, "overwrite existing predictions on finished matches")
	fs.Int64Var(&opts.matchID, "match", 0, "predict a single match by id")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.recompute && !opts.finished {
		return options{}, errors.New("-recompute only applies with -finished")
	}
	if opts.matchID != 0 && opts.finished {
		return options{}, errors.New("-match cannot be combined with -finished")
	}
	if opts.limit < 0 || opts.matchID < 0 {
		return options{}, errors.New("-limit and -match must not be negative")
	}

	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "predict: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: predict [-limit n] [-finished [-recompute]] [-match id]")
		os.Exit(2)
	}

	cfg := config.MustLoadStoreOnly()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	if opts.limit == 0 {
		opts.limit = cfg.PredictLimit
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

	engine := predictor.NewEngine(db)

	if opts.matchID != 0 {
		p, err := engine.PredictMatch(ctx, opts.matchID)
		if err != nil {
			log.Error().Err(err).Int64("match_id", opts.matchID).Msg("Prediction failed")
			fmt.Printf("Match %d: not predicted (%v)\n", opts.matchID, err)
			return
		}
		fmt.Printf("Match %d: team_a=%.4f team_b=%.4f confidence=%.4f\n", p.MatchID, p.TeamA, p.TeamB, p.Confidence)
		return
	}

	var res predictor.BatchResult
	if opts.finished {
		res, err = engine.PredictFinished(ctx, opts.limit, opts.recompute)
	} else {
		res, err = engine.PredictUpcoming(ctx, opts.limit)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", res.Mode).Msg("Prediction pass aborted")
	}

	printSummary(os.Stdout, res)
}

func printSummary(w io.Writer, res predictor.BatchResult) {
	fmt.Fprintf(w, "Mode: %s candidates=%d predicted=%d unchanged=%d failed=%d\n",
		res.Mode, res.Candidates, res.Predicted, res.Unchanged, res.Failed)

	if res.Candidates == 0 {
		fmt.Fprintln(w, "No matches needed a prediction")
	}
	if res.Mode == predictor.ModeFinished {
		fmt.Fprintf(w, "Backtest: evaluated=%d correct=%d accuracy=%.2f%%\n",
			res.Evaluated, res.Correct, res.Accuracy*100)
	}
}
