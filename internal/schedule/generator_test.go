package schedule

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchmetrics/fantasy-corps/internal/models"
)

func testCorpus() map[int][]models.HistoricalEvent {
	events := []models.HistoricalEvent{
		{Name: "DCI World Championship Finals", Location: "Indianapolis, IN", OffSeasonDay: 49},
		{Name: "DCI World Championship Semifinals", Location: "Lucas Oil Stadium", OffSeasonDay: 48},
		{Name: "DCI World Championship Prelims", Location: "Indianapolis Downtown", OffSeasonDay: 47},
		{Name: "DCI Southwestern Championship", Location: "San Antonio, TX", OffSeasonDay: 40},
		{Name: "DCI Eastern Classic", Location: "Allentown, PA", OffSeasonDay: 27},
	}
	for day := 1; day <= models.SeasonDays; day++ {
		for i := 0; i < 4; i++ {
			events = append(events, models.HistoricalEvent{
				Name:         fmt.Sprintf("Tour of Champions %d-%d", day, i),
				Location:     fmt.Sprintf("Stadium %d-%d", day, i),
				OffSeasonDay: day,
			})
		}
	}
	return map[int][]models.HistoricalEvent{2024: events}
}

func newTestGenerator(seed int64) *Generator {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(rand.New(rand.NewSource(seed)), logger)
}

func TestGenerateRestDaysAlwaysEmpty(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		result := newTestGenerator(seed).Generate(testCorpus())
		for _, day := range RestDays {
			assert.Empty(t, result.Days[day], "rest day %d (seed %d)", day, seed)
		}
	}
}

func TestGenerateFinalsWeekSingleShows(t *testing.T) {
	result := newTestGenerator(7).Generate(testCorpus())

	for _, day := range []int{PrelimsDay, SemifinalsDay, FinalsDay} {
		require.Len(t, result.Days[day], 1, "day %d", day)
	}
	assert.Contains(t, strings.ToLower(result.Days[FinalsDay][0].Name), "finals")
	assert.Contains(t, strings.ToLower(result.Days[SemifinalsDay][0].Name), "semifinals")
	assert.Contains(t, strings.ToLower(result.Days[PrelimsDay][0].Name), "prelims")
	assert.Empty(t, result.Warnings)
}

func TestGenerateMultiDayEventSpansAdjacentDays(t *testing.T) {
	result := newTestGenerator(3).Generate(testCorpus())

	require.Len(t, result.Days[MultiDayFirst], 1)
	require.Len(t, result.Days[MultiDaySecond], 1)
	assert.Equal(t, result.Days[MultiDayFirst][0], result.Days[MultiDaySecond][0])
}

func TestGenerateNoDuplicateNamesOrVenues(t *testing.T) {
	result := newTestGenerator(11).Generate(testCorpus())

	names := make(map[string]int)
	venues := make(map[string]int)
	for day, shows := range result.Days {
		for _, show := range shows {
			// The two-day marquee is the one legitimate repeat
			if day == MultiDaySecond && show == result.Days[MultiDayFirst][0] {
				continue
			}
			names[strings.ToLower(show.Name)]++
			venues[strings.ToLower(show.Location)]++
		}
	}
	for name, count := range names {
		assert.Equal(t, 1, count, "duplicate show name %q", name)
	}
	for venue, count := range venues {
		assert.Equal(t, 1, count, "duplicate venue %q", venue)
	}
}

func TestGenerateOrdinaryDayShowMix(t *testing.T) {
	result := newTestGenerator(5).Generate(testCorpus())

	twos, threes := 0, 0
	for day := 1; day <= models.SeasonDays; day++ {
		switch day {
		case PrelimsDay, SemifinalsDay, FinalsDay, RegionalDay, MultiDayFirst, MultiDaySecond, RestDays[0], RestDays[1]:
			continue
		}
		switch len(result.Days[day]) {
		case 2:
			twos++
		case 3:
			threes++
		default:
			t.Errorf("day %d has %d shows, want 2 or 3", day, len(result.Days[day]))
		}
	}
	assert.Greater(t, threes, twos, "three-show days should dominate")
}

func TestGenerateMissingMarqueeLeavesDayEmpty(t *testing.T) {
	corpus := testCorpus()
	// Strip the finals from the corpus
	events := corpus[2024][1:]
	result := newTestGenerator(1).Generate(map[int][]models.HistoricalEvent{2024: events})

	assert.Empty(t, result.Days[FinalsDay])
	assert.NotEmpty(t, result.Warnings)
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	a := newTestGenerator(99).Generate(testCorpus())
	b := newTestGenerator(99).Generate(testCorpus())
	assert.Equal(t, a.Days, b.Days)
}
