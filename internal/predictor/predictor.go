package predictor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// Store is the persistence surface the prediction engine needs
type Store interface {
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	TeamForm(ctx context.Context, teamID int64, before time.Time) (models.TeamForm, error)
	HeadToHead(ctx context.Context, teamA, teamB int64, before time.Time) (models.HeadToHead, error)
	SavePrediction(ctx context.Context, p *models.Prediction, overwrite bool) (bool, error)
	UpcomingUnpredicted(ctx context.Context, limit int) ([]int64, error)
	FinishedMatches(ctx context.Context, limit int, includePredicted bool) ([]int64, error)
}

// Batch modes, used as log and metric labels
const (
	ModeUpcoming = "upcoming"
	ModeFinished = "finished"
	ModeSingle   = "single"
)

// BatchResult reports the outcome of a prediction pass
type BatchResult struct {
	Mode       string
	Candidates int
	Predicted  int // rows written
	Unchanged  int // already predicted, left alone
	Failed     int

	// Backtest figures, finished mode only
	Evaluated int
	Correct   int
	Accuracy  float64
}

// Engine computes and stores match predictions
type Engine struct {
	store Store
}

// NewEngine creates a prediction engine
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Predict computes the prediction for m without storing it. History is
// limited to matches scheduled before m.
func (e *Engine) Predict(ctx context.Context, m *models.Match) (*models.Prediction, error) {
	formA, err := e.store.TeamForm(ctx, m.TeamAID, m.ScheduledAt)
	if err != nil {
		return nil, errors.Wrapf(err, "form of team %d", m.TeamAID)
	}
	formB, err := e.store.TeamForm(ctx, m.TeamBID, m.ScheduledAt)
	if err != nil {
		return nil, errors.Wrapf(err, "form of team %d", m.TeamBID)
	}
	h2h, err := e.store.HeadToHead(ctx, m.TeamAID, m.TeamBID, m.ScheduledAt)
	if err != nil {
		return nil, errors.Wrapf(err, "head to head %d vs %d", m.TeamAID, m.TeamBID)
	}

	// both sides play in the same tournament
	tier := m.TournamentTier.String
	p := Compute(formA, formB, h2h, tier, tier)
	p.MatchID = m.ID
	return &p, nil
}

// PredictMatch computes and stores the prediction for one match. A match that
// already carries a prediction keeps it.
func (e *Engine) PredictMatch(ctx context.Context, matchID int64) (*models.Prediction, error) {
	p, _, _, err := e.predictAndSave(ctx, matchID, false)
	if err != nil {
		metrics.RecordPrediction(ModeSingle, "error")
		return nil, err
	}
	metrics.RecordPrediction(ModeSingle, "success")
	return p, nil
}

func (e *Engine) predictAndSave(ctx context.Context, matchID int64, overwrite bool) (*models.Prediction, *models.Match, bool, error) {
	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, false, errors.Wrapf(err, "load match %d", matchID)
	}

	p, err := e.Predict(ctx, m)
	if err != nil {
		return nil, m, false, errors.Wrapf(err, "predict match %d", matchID)
	}

	saved, err := e.store.SavePrediction(ctx, p, overwrite)
	if err != nil {
		return p, m, false, errors.Wrapf(err, "save prediction for match %d", matchID)
	}

	log.Debug().
		Int64("match_id", matchID).
		Float64("team_a", p.TeamA).
		Float64("team_b", p.TeamB).
		Float64("confidence", p.Confidence).
		Bool("saved", saved).
		Msg("Match predicted")

	return p, m, saved, nil
}

// PredictUpcoming predicts not-started matches that have no prediction yet,
// soonest first.
func (e *Engine) PredictUpcoming(ctx context.Context, limit int) (BatchResult, error) {
	result := BatchResult{Mode: ModeUpcoming}

	ids, err := e.store.UpcomingUnpredicted(ctx, limit)
	if err != nil {
		return result, errors.Wrap(err, "list upcoming matches")
	}

	e.run(ctx, ids, false, &result)
	return result, nil
}

// PredictFinished predicts finished matches, most recent first, and scores
// the predictions against the recorded winners. Already predicted matches
// are only included and overwritten when recompute is set.
func (e *Engine) PredictFinished(ctx context.Context, limit int, recompute bool) (BatchResult, error) {
	result := BatchResult{Mode: ModeFinished}

	ids, err := e.store.FinishedMatches(ctx, limit, recompute)
	if err != nil {
		return result, errors.Wrap(err, "list finished matches")
	}

	e.run(ctx, ids, recompute, &result)

	if result.Evaluated > 0 {
		result.Accuracy = float64(result.Correct) / float64(result.Evaluated)
		metrics.RecordBacktest(result.Accuracy)
	}
	log.Info().
		Int("evaluated", result.Evaluated).
		Int("correct", result.Correct).
		Float64("accuracy", result.Accuracy).
		Msg("Backtest complete")

	return result, nil
}

func (e *Engine) run(ctx context.Context, ids []int64, overwrite bool, result *BatchResult) {
	start := time.Now()
	result.Candidates = len(ids)

	if len(ids) == 0 {
		log.Info().Str("mode", result.Mode).Msg("No matches to predict")
		return
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("Prediction pass interrupted")
			result.Failed += len(ids) - result.Predicted - result.Unchanged - result.Failed
			break
		}

		p, m, saved, err := e.predictAndSave(ctx, id, overwrite)
		if err != nil {
			result.Failed++
			metrics.RecordPrediction(result.Mode, "error")
			metrics.RecordError("predictor", string(apperr.KindOf(err)))
			log.Error().Err(err).Int64("match_id", id).Msg("Failed to predict match")
			continue
		}

		if saved {
			result.Predicted++
			metrics.RecordPrediction(result.Mode, "success")
		} else {
			result.Unchanged++
			metrics.RecordPrediction(result.Mode, "unchanged")
		}

		if m.IsDecided() {
			if isA, decided := p.FavoriteIsA(); decided {
				result.Evaluated++
				winner := m.TeamBID
				if isA {
					winner = m.TeamAID
				}
				if winner == m.WinnerID.Int64 {
					result.Correct++
				}
			}
		}
	}

	metrics.RecordSync("predictions_"+result.Mode, "success", time.Since(start).Seconds())
	log.Info().
		Str("mode", result.Mode).
		Int("candidates", result.Candidates).
		Int("predicted", result.Predicted).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Prediction pass complete")
}
