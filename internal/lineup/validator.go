package lineup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// liveGraceWeeks is how many opening weeks of a live season allow unlimited
// trades.
const liveGraceWeeks = 2

// maxShowsPerWeek caps how many shows a corps may attend in one week
const maxShowsPerWeek = 4

// Submission is one saveLineup request
type Submission struct {
	UserID    uint
	Class     string
	CorpsName string
	Lineup    map[string]models.CaptionSelection
}

// Validator validates and transactionally commits lineups. Every submission
// runs inside one transaction so concurrent submissions can neither
// double-claim a lineup key nor double-spend the trade quota.
type Validator struct {
	db     *database.DB
	cfg    *config.Config
	logger *logrus.Logger
}

func New(db *database.DB, cfg *config.Config, logger *logrus.Logger) *Validator {
	return &Validator{db: db, cfg: cfg, logger: logger}
}

// Submit validates the lineup and commits it, claiming its lineup key.
func (v *Validator) Submit(ctx context.Context, sub Submission) (*models.CorpsProfile, error) {
	if err := validateShape(sub); err != nil {
		return nil, err
	}

	var saved *models.CorpsProfile
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := season.Current(tx)
		if err != nil {
			return err
		}

		if total := lineupPoints(sub.Lineup); total > current.PointCap(sub.Class) {
			return utils.ValidationError(
				fmt.Sprintf("lineup exceeds %s point cap", sub.Class),
				fmt.Sprintf("%d > %d", total, current.PointCap(sub.Class)))
		}

		for caption, sel := range sub.Lineup {
			if _, ok := current.ValueFor(sel.CorpsName, sel.SourceYear); !ok {
				return utils.ValidationError(
					"selection not in season dataset",
					fmt.Sprintf("%s: %s (%d)", caption, sel.CorpsName, sel.SourceYear))
			}
		}

		key := models.LineupKeyFor(sub.Class, sub.Lineup)

		// The scarcity pre-check gives a friendly rejection for the common
		// case. Two first-time submissions racing past it both see no holder,
		// so the partial unique index on lineup_key is the actual guarantee;
		// the losing commit surfaces below as a duplicated-key error.
		var holder models.CorpsProfile
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lineup_key = ? AND active_season_id = ? AND user_id <> ?", key, current.ID, sub.UserID).
			First(&holder).Error
		if err == nil {
			return utils.ConflictError("lineup already claimed by another user")
		}
		if err != gorm.ErrRecordNotFound {
			return utils.TransientError("failed to check lineup key", err.Error())
		}

		var profile models.CorpsProfile
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND class = ?", sub.UserID, sub.Class).
			First(&profile).Error
		isNew := err == gorm.ErrRecordNotFound
		if err != nil && !isNew {
			return utils.TransientError("failed to load corps profile", err.Error())
		}

		week := models.WeekOfDay(current.CurrentDay)
		if week < 1 {
			week = 1
		}

		registeredThisSeason := !isNew && profile.ActiveSeasonID != nil && *profile.ActiveSeasonID == current.ID

		if registeredThisSeason {
			changed := countChangedCaptions(profile.Lineup.Data(), sub.Lineup)
			if changed > 0 && !v.inGraceWindow(current, &profile, week) {
				trades := profile.Trades.Data()
				if trades.SeasonID != current.ID || trades.Week != week {
					trades = models.WeeklyTrades{SeasonID: current.ID, Week: week}
				}
				if trades.Used+changed > v.cfg.WeeklyTradeQuota {
					return utils.ConflictError(
						"weekly trade quota exceeded",
						fmt.Sprintf("%d used, %d requested, quota %d", trades.Used, changed, v.cfg.WeeklyTradeQuota))
				}
				trades.Used += changed
				profile.Trades = datatypes.NewJSONType(trades)
			}
		} else {
			// (Re-)registration: fresh quota, grace starts this week
			profile.RegisteredDay = current.CurrentDay
			profile.Trades = datatypes.NewJSONType(models.WeeklyTrades{SeasonID: current.ID, Week: week})
			profile.SelectedShows = datatypes.NewJSONType(map[int][]string{})
			profile.TotalScore = 0
			profile.LastScoredDay = 0
		}

		profile.UserID = sub.UserID
		profile.Class = sub.Class
		if sub.CorpsName != "" {
			profile.CorpsName = sub.CorpsName
		}
		profile.ActiveSeasonID = &current.ID
		profile.Lineup = datatypes.NewJSONType(sub.Lineup)
		profile.LineupKey = key
		profile.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.ConflictError("lineup already claimed by another user")
			}
			return utils.TransientError("failed to save corps profile", err.Error())
		}
		saved = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.WithFields(logrus.Fields{
		"user_id": sub.UserID,
		"class":   sub.Class,
	}).Info("Lineup saved")
	return saved, nil
}

// SelectShows records which shows the corps attends in a week, capped at 4,
// each of which must exist on the season calendar.
func (v *Validator) SelectShows(ctx context.Context, userID uint, class string, week int, shows []string) (*models.CorpsProfile, error) {
	if week < 1 || week > models.SeasonWeeks {
		return nil, utils.ValidationError("invalid week", fmt.Sprintf("week %d outside 1-%d", week, models.SeasonWeeks))
	}
	if len(shows) > maxShowsPerWeek {
		return nil, utils.ValidationError(
			"too many shows for one week",
			fmt.Sprintf("%d requested, maximum %d", len(shows), maxShowsPerWeek))
	}

	var saved *models.CorpsProfile
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := season.Current(tx)
		if err != nil {
			return err
		}

		scheduled := make(map[string]bool)
		firstDay := (week-1)*7 + 1
		for day := firstDay; day < firstDay+7; day++ {
			for _, show := range current.ShowsOnDay(day) {
				scheduled[show.Name] = true
			}
		}
		for _, name := range shows {
			if !scheduled[name] {
				return utils.ValidationError("show not scheduled in week", fmt.Sprintf("week %d: %s", week, name))
			}
		}

		var profile models.CorpsProfile
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND class = ?", userID, class).
			First(&profile).Error
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundError("no corps registered for class")
		}
		if err != nil {
			return utils.TransientError("failed to load corps profile", err.Error())
		}
		if profile.ActiveSeasonID == nil || *profile.ActiveSeasonID != current.ID {
			return utils.ConflictError("corps is not registered for the active season")
		}

		selected := profile.SelectedShows.Data()
		if selected == nil {
			selected = make(map[int][]string)
		}
		selected[week] = shows
		profile.SelectedShows = datatypes.NewJSONType(selected)

		if err := tx.Save(&profile).Error; err != nil {
			return utils.TransientError("failed to save show selection", err.Error())
		}
		saved = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// inGraceWindow reports whether trade limits are suspended: the week a corps
// registered, and the opening weeks of a live season.
func (v *Validator) inGraceWindow(s *models.Season, profile *models.CorpsProfile, week int) bool {
	registeredWeek := models.WeekOfDay(profile.RegisteredDay)
	if registeredWeek < 1 {
		registeredWeek = 1
	}
	if week == registeredWeek {
		return true
	}
	if s.Status == models.SeasonStatusLive && week <= liveGraceWeeks {
		return true
	}
	return false
}

func validateShape(sub Submission) error {
	if !models.ValidClass(sub.Class) {
		return utils.ValidationError("unknown corps class", sub.Class)
	}
	if len(sub.Lineup) != len(models.AllCaptions) {
		return utils.ValidationError(
			"lineup must fill exactly 8 captions",
			fmt.Sprintf("got %d", len(sub.Lineup)))
	}
	for _, caption := range models.AllCaptions {
		sel, ok := sub.Lineup[caption]
		if !ok {
			return utils.ValidationError("missing caption", caption)
		}
		if sel.CorpsName == "" {
			return utils.ValidationError("empty selection for caption", caption)
		}
	}
	return nil
}

func lineupPoints(lineup map[string]models.CaptionSelection) int {
	total := 0
	for _, sel := range lineup {
		total += sel.Points
	}
	return total
}

// countChangedCaptions counts captions whose selection differs from the
// previously committed lineup.
func countChangedCaptions(previous, next map[string]models.CaptionSelection) int {
	changed := 0
	for caption, sel := range next {
		prev, ok := previous[caption]
		if !ok || prev != sel {
			changed++
		}
	}
	return changed
}
