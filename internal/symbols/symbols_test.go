package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-engine/internal/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		raw      string
		expected models.MarketCategory
	}{
		{"KXNFLGAME-25SEP07PHIDAL-PHI", models.CategoryNFL},
		{"KXNBAGAME-25OCT21HOUOKC-OKC", models.CategoryNBA},
		{"KXNCAAFGAME-25AUG30TEXOSU-OSU", models.CategoryNCAAF},
		{"KXNCAAMBGAME-25MAR20DUKE-DUKE", models.CategoryNCAAB},
		{"KXEPLGAME-25AUG16ARSMUN-ARS", models.CategorySoccer},
		{"KXPRESPARTY-24-R", models.CategoryPolitics},
		{"KXFEDDECISION-25SEP-H0", models.CategoryEconomics},
		{"KXBTCD-25JAN0117-T100000", models.CategoryCrypto},
		{"KXHIGHNY-25JUL04-B85", models.CategoryWeather},
		{"kxnflgame-25sep07phidal-phi", models.CategoryNFL},
		{"AAPL", models.CategoryOther},
		{"", models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.raw))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("full identifier", func(t *testing.T) {
		got := Parse("KXNFLGAME-25SEP07PHIDAL-PHI")
		assert.Equal(t, models.ParsedSymbol{
			Raw:          "KXNFLGAME-25SEP07PHIDAL-PHI",
			Category:     models.CategoryNFL,
			Exchange:     "KX",
			EventType:    "NFLGAME",
			EventDate:    "2025-09-07",
			Participants: []string{"PHI"},
		}, got)
	})

	t.Run("several participants", func(t *testing.T) {
		got := Parse("KXMLBGAME-25JUN01NYYBOS-NYY-BOS")
		assert.Equal(t, []string{"NYY", "BOS"}, got.Participants)
		assert.Equal(t, models.CategoryMLB, got.Category)
	})

	t.Run("malformed parts are omitted", func(t *testing.T) {
		got := Parse("X-NODATE")
		assert.Equal(t, "X-NODATE", got.Raw)
		assert.Empty(t, got.Exchange)
		assert.Empty(t, got.EventType)
		assert.Empty(t, got.EventDate)
		assert.Empty(t, got.Participants)
		assert.Equal(t, models.CategoryOther, got.Category)
	})

	t.Run("empty", func(t *testing.T) {
		got := Parse("  ")
		assert.Equal(t, models.ParsedSymbol{Raw: "", Category: models.CategoryOther}, got)
	})
}
