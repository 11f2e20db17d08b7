package syncer

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// DefaultStatsBatchSize is the number of rows written per commit
const DefaultStatsBatchSize = 100

// StatsResult reports the counts of a match-stats extraction pass
type StatsResult struct {
	Candidates int   // finished matches without stats
	Processed  int   // matches that produced rows
	Skipped    int   // matches whose payload had nothing to extract
	Inserted   int64 // rows actually written
	FailedRows int   // rows lost to a failed flush
}

// statsPayload is the part of a stored match payload stats are read from
type statsPayload struct {
	Results []models.ResultInput    `json:"results"`
	Games   []models.MatchGameInput `json:"games"`
}

// ExtractMatchStats builds one stats row per team from the match's stored
// payload. It returns no rows when the payload has no results.
func ExtractMatchStats(m *models.Match) ([]*models.MatchStats, error) {
	if len(m.RawPayload) == 0 {
		return nil, nil
	}

	var payload statsPayload
	if err := sonic.Unmarshal(m.RawPayload, &payload); err != nil {
		return nil, apperr.Validation(errors.Wrapf(err, "decode payload of match %d", m.ID))
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}

	scores := make(map[int64]*int, 2)
	for i, r := range payload.Results {
		switch {
		case r.TeamID != nil:
			scores[*r.TeamID] = r.Score
		case i == 0:
			scores[m.TeamAID] = r.Score
		case i == 1:
			scores[m.TeamBID] = r.Score
		}
	}

	details := make([]models.GameDetail, 0, len(payload.Games))
	for _, g := range payload.Games {
		d := models.GameDetail{
			Position:      g.Position,
			LengthSeconds: g.Length,
			Status:        g.Status,
		}
		if g.Winner != nil {
			d.WinnerID = g.Winner.ID
		}
		details = append(details, d)
	}

	var rows []*models.MatchStats
	for _, teamID := range []int64{m.TeamAID, m.TeamBID} {
		if teamID == 0 {
			continue
		}
		rows = append(rows, &models.MatchStats{
			MatchID: m.ID,
			TeamID:  teamID,
			Stats: models.TeamMatchStats{
				Score:       scores[teamID],
				GamesDetail: details,
			},
		})
	}

	return rows, nil
}

// SyncMatchStats extracts stats for up to limit finished matches lacking
// them. Rows are buffered and committed every batchSize rows and once more
// at the end. No upstream calls are made.
func (e *Engine) SyncMatchStats(ctx context.Context, limit, batchSize int) (StatsResult, error) {
	start := time.Now()
	var result StatsResult
	if batchSize <= 0 {
		batchSize = DefaultStatsBatchSize
	}

	matches, err := e.store.FinishedMatchesWithoutStats(ctx, limit)
	if err != nil {
		metrics.RecordSync("match_stats", "error", time.Since(start).Seconds())
		return result, errors.Wrap(err, "list finished matches without stats")
	}
	result.Candidates = len(matches)

	if len(matches) == 0 {
		log.Info().Msg("All match stats already loaded")
		return result, nil
	}

	batch := make([]*models.MatchStats, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		var n int64
		err := e.store.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			n, err = e.store.InsertMatchStats(ctx, batch)
			return err
		})
		if err != nil {
			result.FailedRows += len(batch)
			metrics.RecordError("syncer", string(apperr.KindOf(err)))
			log.Error().Err(err).Int("rows", len(batch)).Msg("Failed to flush match stats batch")
		} else {
			result.Inserted += n
		}
		batch = make([]*models.MatchStats, 0, batchSize)
	}

	for _, m := range matches {
		rows, err := ExtractMatchStats(m)
		if err != nil {
			result.Skipped++
			log.Warn().Err(err).Int64("match_id", m.ID).Msg("Skipping match stats")
			continue
		}
		if len(rows) == 0 {
			result.Skipped++
			continue
		}

		batch = append(batch, rows...)
		result.Processed++

		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	metrics.RecordSync("match_stats", "success", time.Since(start).Seconds())
	log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int64("inserted", result.Inserted).
		Int("failed_rows", result.FailedRows).
		Msg("Match stats sync complete")

	return result, nil
}
