package league

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// Engine pairs league members into weekly matchups and resolves winners at
// week boundaries. Pairing order comes from the injected random source.
type Engine struct {
	db     *database.DB
	rng    *rand.Rand
	logger *logrus.Logger
}

func New(db *database.DB, rng *rand.Rand, logger *logrus.Logger) *Engine {
	return &Engine{db: db, rng: rng, logger: logger}
}

// CreateWeekMatchups builds the week's brackets for every league and class.
// Members already bracketed for the week are left alone, so re-running is
// safe.
func (e *Engine) CreateWeekMatchups(ctx context.Context, s *models.Season, week int) error {
	var leagues []models.League
	if err := e.db.WithContext(ctx).Find(&leagues).Error; err != nil {
		return utils.TransientError("failed to load leagues", err.Error())
	}

	for i := range leagues {
		for _, class := range models.AllClasses {
			if err := e.createBracket(ctx, &leagues[i], s, week, class); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) createBracket(ctx context.Context, l *models.League, s *models.Season, week int, class string) error {
	var existing int64
	err := e.db.WithContext(ctx).Model(&models.LeagueMatchup{}).
		Where("league_id = ? AND season_id = ? AND week = ? AND class = ?", l.ID, s.ID, week, class).
		Count(&existing).Error
	if err != nil {
		return utils.TransientError("failed to check existing matchups", err.Error())
	}
	if existing > 0 {
		return nil
	}

	eligible, err := e.eligibleMembers(ctx, l, s, class)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return nil
	}

	e.rng.Shuffle(len(eligible), func(a, b int) {
		eligible[a], eligible[b] = eligible[b], eligible[a]
	})

	var matchups []models.LeagueMatchup
	for i := 0; i+1 < len(eligible); i += 2 {
		home, away := eligible[i], eligible[i+1]
		matchups = append(matchups, models.LeagueMatchup{
			ID:         uuid.NewString(),
			LeagueID:   l.ID,
			SeasonID:   s.ID,
			Week:       week,
			Class:      class,
			HomeUserID: home,
			AwayUserID: &away,
			Scores:     datatypes.NewJSONType(map[uint]float64{home: 0, away: 0}),
		})
	}

	// An odd member left over gets an automatic bye-win
	var bye *uint
	if len(eligible)%2 == 1 {
		home := eligible[len(eligible)-1]
		winner := home
		bye = &winner
		matchups = append(matchups, models.LeagueMatchup{
			ID:           uuid.NewString(),
			LeagueID:     l.ID,
			SeasonID:     s.ID,
			Week:         week,
			Class:        class,
			HomeUserID:   home,
			Scores:       datatypes.NewJSONType(map[uint]float64{home: 0}),
			Outcome:      models.OutcomeHome,
			WinnerUserID: &winner,
		})
	}

	// The bracket and the bye's banked win commit together, so a failed
	// creation can be re-triggered without double-counting the bye.
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&matchups).Error; err != nil {
			return err
		}
		if bye != nil {
			return e.recordOutcome(tx, s.ID, class, *bye, models.OutcomeHome, *bye)
		}
		return nil
	})
	if err != nil {
		return utils.TransientError("failed to create matchups", err.Error())
	}

	e.logger.WithFields(logrus.Fields{
		"league":   l.Name,
		"class":    class,
		"week":     week,
		"matchups": len(matchups),
	}).Info("Created weekly matchups")
	return nil
}

// eligibleMembers intersects league membership with corps registered for the
// active season in the class.
func (e *Engine) eligibleMembers(ctx context.Context, l *models.League, s *models.Season, class string) ([]uint, error) {
	members := l.Members.Data()
	if len(members) == 0 {
		return nil, nil
	}

	var profiles []models.CorpsProfile
	err := e.db.WithContext(ctx).
		Where("user_id IN ? AND class = ? AND active_season_id = ?", members, class, s.ID).
		Find(&profiles).Error
	if err != nil {
		return nil, utils.TransientError("failed to load eligible corps", err.Error())
	}

	eligible := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		eligible = append(eligible, p.UserID)
	}
	return eligible, nil
}

// ResolveWeek settles every unresolved matchup for the week by comparing
// per-class total scores. Matchups with a recorded outcome are skipped
// untouched, so resolution can run any number of times.
func (e *Engine) ResolveWeek(ctx context.Context, s *models.Season, week int) error {
	var matchups []models.LeagueMatchup
	err := e.db.WithContext(ctx).
		Where("season_id = ? AND week = ? AND outcome = ''", s.ID, week).
		Find(&matchups).Error
	if err != nil {
		return utils.TransientError("failed to load matchups", err.Error())
	}

	for i := range matchups {
		if err := e.resolve(ctx, s, &matchups[i]); err != nil {
			return err
		}
	}

	if len(matchups) > 0 {
		e.logger.WithFields(logrus.Fields{
			"week":     week,
			"resolved": len(matchups),
		}).Info("Resolved weekly matchups")
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, s *models.Season, m *models.LeagueMatchup) error {
	homeScore, err := e.classTotal(ctx, m.HomeUserID, m.Class, s.ID)
	if err != nil {
		return err
	}

	scores := map[uint]float64{m.HomeUserID: homeScore}

	if m.IsBye() {
		winner := m.HomeUserID
		m.Outcome = models.OutcomeHome
		m.WinnerUserID = &winner
		m.Scores = datatypes.NewJSONType(scores)
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(m).Error; err != nil {
				return utils.TransientError("failed to save matchup", err.Error())
			}
			return e.recordOutcome(tx, s.ID, m.Class, winner, models.OutcomeHome, winner)
		})
	}

	awayScore, err := e.classTotal(ctx, *m.AwayUserID, m.Class, s.ID)
	if err != nil {
		return err
	}
	scores[*m.AwayUserID] = awayScore

	switch {
	case homeScore > awayScore:
		winner := m.HomeUserID
		m.Outcome = models.OutcomeHome
		m.WinnerUserID = &winner
	case awayScore > homeScore:
		winner := *m.AwayUserID
		m.Outcome = models.OutcomeAway
		m.WinnerUserID = &winner
	default:
		m.Outcome = models.OutcomeTie
	}
	m.Scores = datatypes.NewJSONType(scores)

	var winnerID uint
	if m.WinnerUserID != nil {
		winnerID = *m.WinnerUserID
	}

	// Both counters and the matchup row commit as one unit; a failure
	// leaves the matchup unresolved so the next boundary retries it whole.
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(m).Error; err != nil {
			return utils.TransientError("failed to save matchup", err.Error())
		}
		if err := e.recordOutcome(tx, s.ID, m.Class, m.HomeUserID, m.Outcome, winnerID); err != nil {
			return err
		}
		return e.recordOutcome(tx, s.ID, m.Class, *m.AwayUserID, m.Outcome, winnerID)
	})
}

// classTotal reads a user's current per-class total score
func (e *Engine) classTotal(ctx context.Context, userID uint, class string, seasonID uint) (float64, error) {
	var profile models.CorpsProfile
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND class = ? AND active_season_id = ?", userID, class, seasonID).
		First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, utils.TransientError("failed to load profile score", err.Error())
	}
	return profile.TotalScore, nil
}

// recordOutcome bumps a user's win/loss/tie counters for the season/class.
// It runs on the caller's transaction so the counters commit with the
// matchup they belong to.
func (e *Engine) recordOutcome(tx *gorm.DB, seasonID uint, class string, userID uint, outcome string, winnerID uint) error {
	var stats models.UserLeagueStats
	err := tx.
		Where("user_id = ? AND season_id = ? AND class = ?", userID, seasonID, class).
		First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.UserLeagueStats{UserID: userID, SeasonID: seasonID, Class: class}
	} else if err != nil {
		return utils.TransientError("failed to load league stats", err.Error())
	}

	switch {
	case outcome == models.OutcomeTie:
		stats.Ties++
	case winnerID == userID:
		stats.Wins++
	default:
		stats.Losses++
	}

	if err := tx.Save(&stats).Error; err != nil {
		return utils.TransientError("failed to save league stats", err.Error())
	}
	return nil
}
