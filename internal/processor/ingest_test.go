package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

func TestIngestHistoricalMergesByEvent(t *testing.T) {
	db := newTestDB(t)
	seedScoredSeason(t, db)
	p := newTestProcessor(t, db)
	ctx := context.Background()

	date := time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.IngestHistorical(ctx, ScoreEvent{
		EventName: "Summer Music Games",
		EventDate: date,
		Scores: []CorpsScoreInput{
			{CorpsName: "Bluecoats", Captions: models.CaptionScores{models.CaptionGE1: 15.0}},
		},
	}))

	// Redelivery with another corps merges into the same event
	require.NoError(t, p.IngestHistorical(ctx, ScoreEvent{
		EventName: "Summer Music Games",
		EventDate: date,
		Scores: []CorpsScoreInput{
			{CorpsName: "Carolina Crown", Captions: models.CaptionScores{models.CaptionGE1: 14.8}},
		},
	}))

	var record models.HistoricalScores
	require.NoError(t, db.Where("year = ?", 2023).First(&record).Error)
	events := record.Events.Data()
	require.Len(t, events, 1)
	assert.InDelta(t, 15.0, events[0].Scores["Bluecoats"][models.CaptionGE1], 1e-9)
	assert.InDelta(t, 14.8, events[0].Scores["Carolina Crown"][models.CaptionGE1], 1e-9)

	// A different event name for the same year is appended
	require.NoError(t, p.IngestHistorical(ctx, ScoreEvent{
		EventName: "Midwest Classic",
		EventDate: date.AddDate(0, 0, 3),
		Scores: []CorpsScoreInput{
			{CorpsName: "Bluecoats", Captions: models.CaptionScores{models.CaptionGE1: 15.4}},
		},
	}))
	require.NoError(t, db.Where("year = ?", 2023).First(&record).Error)
	assert.Len(t, record.Events.Data(), 2)
}

func TestIngestLiveRequiresLiveSeason(t *testing.T) {
	db := newTestDB(t)
	seedScoredSeason(t, db)
	p := newTestProcessor(t, db)

	err := p.IngestLive(context.Background(), ScoreEvent{
		EventName: "Tour Opener",
		EventDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeConflict))
}

func TestIngestLiveScoresDayAndAdvances(t *testing.T) {
	db := newTestDB(t)
	season := seedScoredSeason(t, db)
	require.NoError(t, db.Model(&models.Season{}).Where("id = ?", season.ID).
		Update("status", models.SeasonStatusLive).Error)
	seedProfile(t, db, season, 1, map[int][]string{1: {"Tour Premiere"}})
	p := newTestProcessor(t, db)

	flat := make(models.CaptionScores, len(models.AllCaptions))
	for _, caption := range models.AllCaptions {
		flat[caption] = 14.0
	}

	// Start date is one day ago, so this event lands on day 2
	require.NoError(t, p.IngestLive(context.Background(), ScoreEvent{
		EventName: "Tour Premiere",
		EventDate: season.StartDate.AddDate(0, 0, 1),
		Scores:    []CorpsScoreInput{{CorpsName: "Blue Devils", Captions: flat}},
	}))

	var stored models.LiveScore
	require.NoError(t, db.Where("season_id = ? AND corps_name = ?", season.ID, "Blue Devils").First(&stored).Error)
	assert.Equal(t, 2, stored.Day)
	assert.InDelta(t, 14.0, stored.Captions.Data()[models.CaptionGE1], 1e-9)

	var got models.Season
	require.NoError(t, db.First(&got, season.ID).Error)
	assert.Equal(t, 2, got.CurrentDay)

	// Live ground truth drives the day's fantasy totals: 14 per caption
	var profile models.CorpsProfile
	require.NoError(t, db.Where("user_id = ?", 1).First(&profile).Error)
	assert.InDelta(t, 56.0, profile.TotalScore, 1e-9)
}

func TestIngestLiveRedeliveryOverwrites(t *testing.T) {
	db := newTestDB(t)
	season := seedScoredSeason(t, db)
	require.NoError(t, db.Model(&models.Season{}).Where("id = ?", season.ID).
		Update("status", models.SeasonStatusLive).Error)
	p := newTestProcessor(t, db)
	ctx := context.Background()

	event := ScoreEvent{
		EventName: "Tour Premiere",
		EventDate: season.StartDate.AddDate(0, 0, 1),
		Scores: []CorpsScoreInput{
			{CorpsName: "Blue Devils", Captions: models.CaptionScores{models.CaptionGE1: 13.0}},
		},
	}
	require.NoError(t, p.IngestLive(ctx, event))

	event.Scores[0].Captions = models.CaptionScores{models.CaptionGE1: 13.5}
	require.NoError(t, p.IngestLive(ctx, event))

	var count int64
	require.NoError(t, db.Model(&models.LiveScore{}).Where("season_id = ?", season.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored models.LiveScore
	require.NoError(t, db.Where("season_id = ?", season.ID).First(&stored).Error)
	assert.InDelta(t, 13.5, stored.Captions.Data()[models.CaptionGE1], 1e-9)
}
