package season

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/schedule"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// pointTiers are walked high to low when assigning off-season corps values
var pointTiers = []int{25, 22, 19, 16, 13, 10, 7}

// tierSize is how many corps each tier contributes to the dataset
const tierSize = 4

// Manager drives the off-season/live-season state machine. Each Tick
// re-reads the season singleton; nothing is cached between invocations.
type Manager struct {
	db     *database.DB
	cfg    *config.Config
	rng    *rand.Rand
	logger *logrus.Logger
}

func NewManager(db *database.DB, cfg *config.Config, rng *rand.Rand, logger *logrus.Logger) *Manager {
	return &Manager{db: db, cfg: cfg, rng: rng, logger: logger}
}

// Current returns the season singleton, freshly read.
func Current(db *gorm.DB) (*models.Season, error) {
	var season models.Season
	if err := db.Order("id DESC").First(&season).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError("no active season")
		}
		return nil, utils.TransientError("failed to load season", err.Error())
	}
	return &season, nil
}

// Tick evaluates the state machine once. It creates the singleton when
// missing, and rolls the season over when its end date has passed.
func (m *Manager) Tick(ctx context.Context) error {
	now := time.Now().UTC()

	current, err := Current(m.db.WithContext(ctx))
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			m.logger.Info("No season record found, creating initial off-season")
			_, createErr := m.createOffSeason(ctx, now)
			return createErr
		}
		return err
	}

	if !current.EndDate.Before(now) {
		return nil
	}

	m.logger.WithFields(logrus.Fields{
		"season": current.Name,
		"status": current.Status,
	}).Info("Season has ended, rolling over")

	var next *models.Season
	if current.Status == models.SeasonStatusOff && m.liveWindowReached(now) {
		next, err = m.createLiveSeason(ctx, now)
	} else {
		next, err = m.createOffSeason(ctx, now)
	}
	if err != nil {
		return err
	}

	// Profiles pointing at the outgoing season must re-register
	if err := m.db.WithContext(ctx).Model(&models.CorpsProfile{}).
		Where("active_season_id = ?", current.ID).
		Update("active_season_id", nil).Error; err != nil {
		return utils.TransientError("failed to detach profiles from ended season", err.Error())
	}

	m.logger.WithField("season", next.Name).Info("Season rollover complete")
	return nil
}

// liveWindowReached reports whether the real calendar has entered the
// configured live-tour window.
func (m *Manager) liveWindowReached(now time.Time) bool {
	start := time.Date(now.Year(), time.Month(m.cfg.LiveSeasonStartMonth), m.cfg.LiveSeasonStartDay, 0, 0, 0, 0, time.UTC)
	return !now.Before(start)
}

func (m *Manager) createOffSeason(ctx context.Context, now time.Time) (*models.Season, error) {
	eventsByYear, err := m.loadHistoricalEvents(ctx)
	if err != nil {
		return nil, err
	}

	values, err := m.assignOffSeasonValues(ctx, eventsByYear)
	if err != nil {
		return nil, err
	}

	gen := schedule.New(m.rng, m.logger)
	calendar := gen.Generate(eventsByYear)
	for _, warning := range calendar.Warnings {
		m.logger.WithField("component", "schedule").Warn(warning)
	}

	season := &models.Season{
		Name:        fmt.Sprintf("Off-Season %s", now.Format("2006-01-02")),
		Status:      models.SeasonStatusOff,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, models.SeasonDays),
		Events:      datatypes.NewJSONType(calendar.Days),
		CorpsValues: datatypes.NewJSONType(values),
		PointCaps:   datatypes.NewJSONType(models.ClassPointCaps),
	}
	if err := m.db.WithContext(ctx).Create(season).Error; err != nil {
		return nil, utils.TransientError("failed to create off-season", err.Error())
	}

	m.logger.WithFields(logrus.Fields{
		"season": season.Name,
		"corps":  len(values),
	}).Info("Created new off-season")
	return season, nil
}

func (m *Manager) createLiveSeason(ctx context.Context, now time.Time) (*models.Season, error) {
	values, err := m.seedLiveValues(ctx, now.Year()-1)
	if err != nil {
		return nil, err
	}

	eventsByYear, err := m.loadHistoricalEvents(ctx)
	if err != nil {
		return nil, err
	}
	gen := schedule.New(m.rng, m.logger)
	calendar := gen.Generate(eventsByYear)

	season := &models.Season{
		Name:        fmt.Sprintf("Live Season %d", now.Year()),
		Status:      models.SeasonStatusLive,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, models.SeasonDays),
		Events:      datatypes.NewJSONType(calendar.Days),
		CorpsValues: datatypes.NewJSONType(values),
		PointCaps:   datatypes.NewJSONType(models.ClassPointCaps),
	}
	if err := m.db.WithContext(ctx).Create(season).Error; err != nil {
		return nil, utils.TransientError("failed to create live season", err.Error())
	}

	m.logger.WithField("season", season.Name).Info("Created live season")
	return season, nil
}

// seedLiveValues prices corps off the prior year's final rankings.
func (m *Manager) seedLiveValues(ctx context.Context, year int) ([]models.CorpsValue, error) {
	var ranking models.FinalRanking
	if err := m.db.WithContext(ctx).Where("year = ?", year).First(&ranking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("no final rankings for %d", year))
		}
		return nil, utils.TransientError("failed to load final rankings", err.Error())
	}

	var values []models.CorpsValue
	for _, ranked := range ranking.Rankings.Data() {
		values = append(values, models.CorpsValue{
			CorpsName:  ranked.CorpsName,
			SourceYear: year,
			Points:     pointsForRank(ranked.Rank),
		})
	}
	return values, nil
}

// pointsForRank maps a final placement onto a point tier
func pointsForRank(rank int) int {
	idx := (rank - 1) / 2
	if idx >= len(pointTiers) {
		idx = len(pointTiers) - 1
	}
	return pointTiers[idx]
}

// corpsEntry is one candidate from the historical pool with its best finish
type corpsEntry struct {
	name     string
	year     int
	bestRank int
}

// assignOffSeasonValues walks point tiers from high to low, preferring an
// unused corps whose historical placement fits the tier, and falling back to
// any unused corps from the full pool when a tier runs dry. No corps name
// appears twice in the resulting dataset.
func (m *Manager) assignOffSeasonValues(ctx context.Context, eventsByYear map[int][]models.HistoricalEvent) ([]models.CorpsValue, error) {
	pool := m.historicalPool(ctx, eventsByYear)
	if len(pool) == 0 {
		return nil, utils.NotFoundError("no historical corps available for dataset")
	}

	byTier := make(map[int][]corpsEntry)
	for _, entry := range pool {
		tier := pointsForRank(entry.bestRank)
		byTier[tier] = append(byTier[tier], entry)
	}

	used := make(map[string]bool)
	var values []models.CorpsValue

	pick := func(candidates []corpsEntry) (corpsEntry, bool) {
		unused := make([]corpsEntry, 0, len(candidates))
		for _, c := range candidates {
			if !used[c.name] {
				unused = append(unused, c)
			}
		}
		if len(unused) == 0 {
			return corpsEntry{}, false
		}
		return unused[m.rng.Intn(len(unused))], true
	}

	for _, tier := range pointTiers {
		for i := 0; i < tierSize; i++ {
			entry, ok := pick(byTier[tier])
			if !ok {
				entry, ok = pick(pool)
			}
			if !ok {
				// Pool exhausted entirely; dataset stays short
				break
			}
			used[entry.name] = true
			values = append(values, models.CorpsValue{
				CorpsName:  entry.name,
				SourceYear: entry.year,
				Points:     tier,
			})
		}
	}

	return values, nil
}

// historicalPool derives the candidate corps list from the score corpus,
// ranking each corps by its best championship-day total per year.
func (m *Manager) historicalPool(ctx context.Context, eventsByYear map[int][]models.HistoricalEvent) []corpsEntry {
	type corpsBest struct {
		year  int
		score float64
	}
	best := make(map[string]corpsBest)

	for year, events := range eventsByYear {
		for _, event := range events {
			for corps, captions := range event.Scores {
				var total float64
				for _, s := range captions {
					total += s
				}
				if prev, ok := best[corps]; !ok || total > prev.score {
					best[corps] = corpsBest{year: year, score: total}
				}
			}
		}
	}

	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	// Highest scoring corps first, so rank order follows score order
	sort.Slice(names, func(i, j int) bool {
		if best[names[i]].score != best[names[j]].score {
			return best[names[i]].score > best[names[j]].score
		}
		return names[i] < names[j]
	})

	pool := make([]corpsEntry, 0, len(names))
	for rank, name := range names {
		pool = append(pool, corpsEntry{name: name, year: best[name].year, bestRank: rank + 1})
	}
	return pool
}

// loadHistoricalEvents reads the full per-year score corpus.
func (m *Manager) loadHistoricalEvents(ctx context.Context) (map[int][]models.HistoricalEvent, error) {
	var records []models.HistoricalScores
	if err := m.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, utils.TransientError("failed to load historical scores", err.Error())
	}

	eventsByYear := make(map[int][]models.HistoricalEvent, len(records))
	for _, record := range records {
		eventsByYear[record.Year] = record.Events.Data()
	}
	return eventsByYear, nil
}
