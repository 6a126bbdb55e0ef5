package predictor

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/marchmetrics/fantasy-corps/internal/models"
)

// liveDayOffset maps a live-season day onto the equivalent synthetic
// off-season day when a live fit has to fall back to historical data.
const liveDayOffset = 5

// minLivePoints is how many live data points a corps/caption needs before
// the live regression is trusted over the historical one.
const minLivePoints = 3

// jitterRange is the half-width of the uniform noise added to regressed scores
const jitterRange = 0.25

// Point is one observed (day, score) sample for a corps/caption
type Point struct {
	Day   int
	Score float64
}

type seriesKey struct {
	corps   string
	year    int
	caption string
}

// Dataset indexes historical caption scores by corps, source year and caption
type Dataset struct {
	series map[seriesKey][]Point
}

// NewDataset builds a prediction dataset from per-year historical events
func NewDataset(eventsByYear map[int][]models.HistoricalEvent) *Dataset {
	d := &Dataset{series: make(map[seriesKey][]Point)}
	for year, events := range eventsByYear {
		for _, event := range events {
			for corps, captions := range event.Scores {
				for caption, score := range captions {
					key := seriesKey{corps: corps, year: year, caption: caption}
					d.series[key] = append(d.series[key], Point{Day: event.OffSeasonDay, Score: score})
				}
			}
		}
	}
	return d
}

// Points returns all observed samples for a corps/year/caption
func (d *Dataset) Points(corps string, year int, caption string) []Point {
	return d.series[seriesKey{corps: corps, year: year, caption: caption}]
}

// GroundTruth returns the observed score for the exact day, if one exists
func (d *Dataset) GroundTruth(corps string, year int, caption string, day int) (float64, bool) {
	for _, p := range d.Points(corps, year, caption) {
		if p.Day == day {
			return p.Score, true
		}
	}
	return 0, false
}

// LiveDataset indexes the active season's ingested caption scores by corps
// and caption; source year is irrelevant for live data.
type LiveDataset struct {
	series map[seriesKey][]Point
}

// NewLiveDataset builds a live dataset from the season's ingested scores
func NewLiveDataset(scores []models.LiveScore) *LiveDataset {
	d := &LiveDataset{series: make(map[seriesKey][]Point)}
	for _, s := range scores {
		for caption, score := range s.Captions.Data() {
			key := seriesKey{corps: s.CorpsName, caption: caption}
			d.series[key] = append(d.series[key], Point{Day: s.Day, Score: score})
		}
	}
	return d
}

func (d *LiveDataset) points(corps, caption string) []Point {
	return d.series[seriesKey{corps: corps, caption: caption}]
}

// Predictor produces per-caption scores by blending ground truth with
// log-linear regression. The random source is injected so tests can pin it.
type Predictor struct {
	data   *Dataset
	rng    *rand.Rand
	logger *logrus.Logger
}

func New(data *Dataset, rng *rand.Rand, logger *logrus.Logger) *Predictor {
	return &Predictor{data: data, rng: rng, logger: logger}
}

// Predict estimates the caption score for a corps/year on a season day.
// Ground truth always wins; otherwise a log-linear fit over the available
// samples is evaluated at day, with uniform jitter, clamped to [0, 20].
func (p *Predictor) Predict(corps string, sourceYear int, caption string, day int) float64 {
	if score, ok := p.data.GroundTruth(corps, sourceYear, caption, day); ok {
		return score
	}

	points := p.data.Points(corps, sourceYear, caption)
	switch {
	case len(points) >= 2:
		return p.regress(points, day)
	case len(points) == 1:
		// A single sample is no basis for extrapolation
		return points[0].Score
	default:
		p.logger.WithFields(logrus.Fields{
			"corps":   corps,
			"year":    sourceYear,
			"caption": caption,
		}).Warn("No historical data points for caption, scoring 0")
		return 0
	}
}

// PredictLive estimates a caption score during a live season. The season's
// own data is preferred once a stable fit is possible; otherwise the live day
// is mapped onto the synthetic calendar and the historical path takes over.
func (p *Predictor) PredictLive(live *LiveDataset, corps string, sourceYear int, caption string, liveDay int) float64 {
	points := live.points(corps, caption)
	for _, pt := range points {
		if pt.Day == liveDay {
			return pt.Score
		}
	}
	if len(points) >= minLivePoints {
		return p.regress(points, liveDay)
	}
	return p.Predict(corps, sourceYear, caption, liveDay+liveDayOffset)
}

// regress fits score = exp(m*day + c) by ordinary least squares on
// (day, ln score) and evaluates it at day, jittered and clamped.
func (p *Predictor) regress(points []Point, day int) float64 {
	m, c, ok := fitLogLinear(points)
	if !ok {
		// Degenerate fit (e.g. all scores zero); fall back to the last sample
		return points[len(points)-1].Score
	}

	score := math.Exp(m*float64(day) + c)
	score += p.rng.Float64()*2*jitterRange - jitterRange

	if score < 0 {
		score = 0
	}
	if score > models.MaxCaptionScore {
		score = models.MaxCaptionScore
	}
	return math.Round(score*1000) / 1000
}

// fitLogLinear computes the OLS slope and intercept of ln(score) over day.
// Samples with non-positive scores are skipped since ln is undefined there.
func fitLogLinear(points []Point) (m, c float64, ok bool) {
	var n, sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		if p.Score <= 0 {
			continue
		}
		x := float64(p.Day)
		y := math.Log(p.Score)
		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	if n < 2 {
		return 0, 0, false
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	m = (n*sumXY - sumX*sumY) / denom
	c = (sumY - m*sumX) / n
	return m, c, true
}
