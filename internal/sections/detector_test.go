package sections

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/models"
)

func frag(text string, page int) models.TextFragment {
	return models.TextFragment{Text: text, PageNumber: page}
}

func sampleStream() []models.TextFragment {
	return []models.TextFragment{
		frag("Robinhood Derivatives", 1),
		frag("Statement Period: 07/01/2024 - 07/31/2024", 1),
		frag("Account Summary", 1),
		frag("Opening Balance", 1),
		frag("$100.00", 1),
		frag("Trade Activity", 1),
		frag("Trade Date", 1),
		frag("07/02/2024", 2),
		frag("Journal Entries", 2),
		frag("ACH Deposit", 2),
	}
}

func TestDetect(t *testing.T) {
	items := sampleStream()
	detected := Default().Detect(items)

	require.Len(t, detected, 3)

	assert.Equal(t, models.SectionAccountSummary, detected[0].Type)
	assert.Equal(t, 2, detected[0].StartIndex)
	assert.Equal(t, 4, detected[0].EndIndex)
	assert.Equal(t, "Account Summary", detected[0].HeaderText)

	assert.Equal(t, models.SectionTrades, detected[1].Type)
	assert.Equal(t, 5, detected[1].StartIndex)
	assert.Equal(t, 7, detected[1].EndIndex)
	assert.Equal(t, 1, detected[1].StartPage)
	assert.Equal(t, 2, detected[1].EndPage)

	assert.Equal(t, models.SectionJournalEntries, detected[2].Type)
	assert.Equal(t, 9, detected[2].EndIndex)
}

func TestDetect_PartitionReconstructsStream(t *testing.T) {
	items := sampleStream()
	detected := Default().Detect(items)
	require.NotEmpty(t, detected)

	rebuilt := append([]models.TextFragment{}, items[:detected[0].StartIndex]...)
	for _, s := range detected {
		rebuilt = append(rebuilt, s.Items...)
	}
	assert.Equal(t, items, rebuilt)

	// Running detection again over the same stream gives the same answer.
	assert.Equal(t, detected, Default().Detect(items))
}

func TestDetect_NoHeaders(t *testing.T) {
	items := []models.TextFragment{frag("hello", 1), frag("world", 1)}
	assert.Empty(t, Default().Detect(items))
	assert.Empty(t, Default().Detect(nil))
}

func TestDetect_FirstPatternWins(t *testing.T) {
	d := NewDetector([]Pattern{
		{models.SectionJournalEntries, regexp.MustCompile(`(?i)entries`)},
		{models.SectionTrades, regexp.MustCompile(`(?i)trade`)},
	})

	got, ok := d.DetectSectionType("Trade Entries")
	assert.True(t, ok)
	assert.Equal(t, models.SectionJournalEntries, got)
}

func TestIsSectionHeader(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"Account Summary", true},
		{"ACCOUNT SUMMARY", true},
		{"Monthly Trade Confirmations", true},
		{"Purchase and Sale", true},
		{"Open Positions", true},
		{"Trade Date", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSectionHeader(tt.text))
		})
	}
}
