package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marchmetrics/fantasy-corps/internal/models"
)

// Fixed calendar landmarks on the 49-day season
const (
	FinalsDay     = 49
	SemifinalsDay = 48
	PrelimsDay    = 47
	RegionalDay   = 40

	// The two-day marquee event occupies these adjacent days
	MultiDayFirst  = 27
	MultiDaySecond = 28
)

// RestDays are forced empty immediately before finals week
var RestDays = [2]int{45, 46}

// marqueeSlot binds a fixed day to the name fragment that identifies its show
type marqueeSlot struct {
	day      int
	fragment string
}

var marqueeSlots = []marqueeSlot{
	{FinalsDay, "world championship finals"},
	{SemifinalsDay, "world championship semifinals"},
	{PrelimsDay, "world championship prelims"},
	{RegionalDay, "southwestern championship"},
}

const multiDayFragment = "eastern classic"

// twoShowRatio is the share of ordinary days that get 2 shows instead of 3
const twoShowRatio = 0.2

// Result is a generated 49-day calendar plus any non-fatal gaps encountered
type Result struct {
	Days     map[int][]models.Show
	Warnings []string
}

// Generator builds a season calendar from a historical show corpus. The
// random source is injected so a fixed seed yields a reproducible calendar.
type Generator struct {
	rng    *rand.Rand
	logger *logrus.Logger
}

func New(rng *rand.Rand, logger *logrus.Logger) *Generator {
	return &Generator{rng: rng, logger: logger}
}

type candidate struct {
	name     string
	location string
	day      int
}

// Generate lays out the 49-day calendar. Missing marquee candidates leave
// their day empty with a warning; generation itself never fails.
func (g *Generator) Generate(eventsByYear map[int][]models.HistoricalEvent) *Result {
	result := &Result{Days: make(map[int][]models.Show)}

	pool := collectCandidates(eventsByYear)
	usedNames := make(map[string]bool)
	usedVenues := make(map[string]bool)

	reserved := make(map[int]bool)
	for _, slot := range marqueeSlots {
		reserved[slot.day] = true
	}
	reserved[MultiDayFirst] = true
	reserved[MultiDaySecond] = true
	for _, d := range RestDays {
		reserved[d] = true
	}

	// 1. Fixed marquee placements
	for _, slot := range marqueeSlots {
		show, ok := g.pickMarquee(pool, slot.fragment, usedNames, usedVenues)
		if !ok {
			warning := fmt.Sprintf("no unused show matches %q, day %d left empty", slot.fragment, slot.day)
			result.Warnings = append(result.Warnings, warning)
			g.logger.Warn(warning)
			continue
		}
		result.Days[slot.day] = []models.Show{show}
	}

	// 2. Two-day marquee from a single instance
	if show, ok := g.pickMarquee(pool, multiDayFragment, usedNames, usedVenues); ok {
		result.Days[MultiDayFirst] = []models.Show{show}
		result.Days[MultiDaySecond] = []models.Show{show}
	} else {
		warning := fmt.Sprintf("no unused show matches %q, days %d-%d left empty", multiDayFragment, MultiDayFirst, MultiDaySecond)
		result.Warnings = append(result.Warnings, warning)
		g.logger.Warn(warning)
	}

	// 3. Fill ordinary days with a shuffled 2-show/3-show mix
	ordinary := make([]int, 0, models.SeasonDays)
	for day := 1; day <= models.SeasonDays; day++ {
		if !reserved[day] {
			ordinary = append(ordinary, day)
		}
	}
	counts := g.shuffledShowCounts(len(ordinary))

	byDay := make(map[int][]candidate)
	for _, c := range pool {
		byDay[c.day] = append(byDay[c.day], c)
	}

	for i, day := range ordinary {
		candidates := append([]candidate(nil), byDay[day]...)
		g.rng.Shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})

		for _, c := range candidates {
			if len(result.Days[day]) >= counts[i] {
				break
			}
			nameKey := strings.ToLower(c.name)
			venueKey := strings.ToLower(c.location)
			if usedNames[nameKey] || usedVenues[venueKey] {
				continue
			}
			usedNames[nameKey] = true
			usedVenues[venueKey] = true
			result.Days[day] = append(result.Days[day], models.Show{Name: c.name, Location: c.location})
		}
	}

	// 4. Rest days stay empty
	for _, d := range RestDays {
		delete(result.Days, d)
	}

	return result
}

// pickMarquee selects one unused show matching the fragment, marking its
// name and venue as used.
func (g *Generator) pickMarquee(pool []candidate, fragment string, usedNames, usedVenues map[string]bool) (models.Show, bool) {
	matches := make([]candidate, 0)
	for _, c := range pool {
		nameKey := strings.ToLower(c.name)
		if !strings.Contains(nameKey, fragment) {
			continue
		}
		if usedNames[nameKey] || usedVenues[strings.ToLower(c.location)] {
			continue
		}
		matches = append(matches, c)
	}
	if len(matches) == 0 {
		return models.Show{}, false
	}

	picked := matches[g.rng.Intn(len(matches))]
	usedNames[strings.ToLower(picked.name)] = true
	usedVenues[strings.ToLower(picked.location)] = true
	return models.Show{Name: picked.name, Location: picked.location}, true
}

// shuffledShowCounts assigns 2 or 3 shows per ordinary day in roughly a
// 20/80 split, randomly distributed across the days.
func (g *Generator) shuffledShowCounts(days int) []int {
	counts := make([]int, days)
	twoShowDays := int(float64(days) * twoShowRatio)
	for i := range counts {
		if i < twoShowDays {
			counts[i] = 2
		} else {
			counts[i] = 3
		}
	}
	g.rng.Shuffle(len(counts), func(a, b int) {
		counts[a], counts[b] = counts[b], counts[a]
	})
	return counts
}

// collectCandidates flattens the corpus in year order so a seeded random
// source reproduces the same calendar.
func collectCandidates(eventsByYear map[int][]models.HistoricalEvent) []candidate {
	years := make([]int, 0, len(eventsByYear))
	for year := range eventsByYear {
		years = append(years, year)
	}
	sort.Ints(years)

	var pool []candidate
	for _, year := range years {
		for _, e := range eventsByYear[year] {
			pool = append(pool, candidate{name: e.Name, location: e.Location, day: e.OffSeasonDay})
		}
	}
	return pool
}
