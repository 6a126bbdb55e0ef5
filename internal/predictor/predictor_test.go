package predictor

import (
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/marchmetrics/fantasy-corps/internal/models"
)

func testPredictor(events map[int][]models.HistoricalEvent) *Predictor {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(NewDataset(events), rand.New(rand.NewSource(42)), logger)
}

func historicalPoint(day int, corps string, caption string, score float64) models.HistoricalEvent {
	return models.HistoricalEvent{
		Name:         "Test Show",
		OffSeasonDay: day,
		Scores: map[string]models.CaptionScores{
			corps: {caption: score},
		},
	}
}

func TestPredictGroundTruthPassthrough(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {
			historicalPoint(3, "Blue Devils", models.CaptionBrass, 15.234),
			historicalPoint(1, "Blue Devils", models.CaptionBrass, 12.0),
			historicalPoint(5, "Blue Devils", models.CaptionBrass, 18.0),
		},
	})

	// An observed score for the exact day bypasses regression entirely
	score := p.Predict("Blue Devils", 2024, models.CaptionBrass, 3)
	assert.Equal(t, 15.234, score)
}

func TestPredictRegressionFlatSeries(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {
			historicalPoint(1, "Bluecoats", models.CaptionPercussion, 10.0),
			historicalPoint(2, "Bluecoats", models.CaptionPercussion, 10.0),
		},
	})

	// Flat input should regress to 10 plus jitter within [-0.25, 0.25]
	score := p.Predict("Bluecoats", 2024, models.CaptionPercussion, 5)
	assert.GreaterOrEqual(t, score, 9.75)
	assert.LessOrEqual(t, score, 10.25)
}

func TestPredictRegressionGrowth(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {
			historicalPoint(10, "Carolina Crown", models.CaptionGE1, 14.0),
			historicalPoint(20, "Carolina Crown", models.CaptionGE1, 15.5),
			historicalPoint(30, "Carolina Crown", models.CaptionGE1, 17.0),
		},
	})

	early := p.Predict("Carolina Crown", 2024, models.CaptionGE1, 15)
	late := p.Predict("Carolina Crown", 2024, models.CaptionGE1, 40)
	assert.Greater(t, late, early)
	assert.LessOrEqual(t, late, models.MaxCaptionScore)
}

func TestPredictSinglePointVerbatim(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {historicalPoint(10, "Boston Crusaders", models.CaptionColorGuard, 13.7)},
	})

	// One sample is no basis for extrapolation
	score := p.Predict("Boston Crusaders", 2024, models.CaptionColorGuard, 30)
	assert.Equal(t, 13.7, score)
}

func TestPredictNoDataScoresZero(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{})

	score := p.Predict("Phantom Regiment", 2024, models.CaptionBrass, 10)
	assert.Equal(t, 0.0, score)
}

func liveScore(day int, corps string, caption string, score float64) models.LiveScore {
	return models.LiveScore{
		SeasonID:  1,
		CorpsName: corps,
		Day:       day,
		Captions:  datatypes.NewJSONType(models.CaptionScores{caption: score}),
	}
}

func TestPredictLivePrefersLiveRegression(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {
			historicalPoint(1, "Blue Devils", models.CaptionBrass, 5.0),
			historicalPoint(2, "Blue Devils", models.CaptionBrass, 5.0),
		},
	})
	live := NewLiveDataset([]models.LiveScore{
		liveScore(1, "Blue Devils", models.CaptionBrass, 17.0),
		liveScore(2, "Blue Devils", models.CaptionBrass, 17.0),
		liveScore(3, "Blue Devils", models.CaptionBrass, 17.0),
	})

	// Three live points suffice for a live fit; the weak historical series
	// never comes into play
	score := p.PredictLive(live, "Blue Devils", 2024, models.CaptionBrass, 6)
	assert.GreaterOrEqual(t, score, 16.75)
	assert.LessOrEqual(t, score, 17.25)
}

func TestPredictLiveGroundTruthWins(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{})
	live := NewLiveDataset([]models.LiveScore{
		liveScore(4, "Bluecoats", models.CaptionGE2, 18.45),
	})

	score := p.PredictLive(live, "Bluecoats", 2024, models.CaptionGE2, 4)
	assert.Equal(t, 18.45, score)
}

func TestPredictLiveFallsBackToHistorical(t *testing.T) {
	p := testPredictor(map[int][]models.HistoricalEvent{
		2024: {historicalPoint(8+liveDayOffset, "Bluecoats", models.CaptionGE2, 16.1)},
	})
	live := NewLiveDataset(nil)

	// With no live data the live day maps onto the synthetic calendar
	score := p.PredictLive(live, "Bluecoats", 2024, models.CaptionGE2, 8)
	assert.Equal(t, 16.1, score)
}

func TestFitLogLinearDegenerate(t *testing.T) {
	_, _, ok := fitLogLinear([]Point{{Day: 1, Score: 0}, {Day: 2, Score: 0}})
	assert.False(t, ok)

	_, _, ok = fitLogLinear([]Point{{Day: 3, Score: 10}, {Day: 3, Score: 12}})
	assert.False(t, ok)
}
