package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseText = `The landlord leases the apartment to the tenant. The tenant pays rent monthly.
Rent is due on the first day of each month. The weather was nice.`

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize(leaseText, 2)
	require.NoError(t, err)
	assert.Equal(t, "The tenant pays rent monthly. Rent is due on the first day of each month.", got)
}

func TestSummarize_NoSentenceTerminator(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  just a heading  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a heading", got)
}

func TestSummarize_FewerSentencesThanRequested(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("One sentence only.", 5)
	require.NoError(t, err)
	assert.Equal(t, "One sentence only.", got)
}

func TestKeywords(t *testing.T) {
	got := NewFrequencySummarizer().Keywords(leaseText, 3)
	assert.Equal(t, []string{"rent", "tenant", "apartment"}, got)
}

func TestKeywords_SkipsStopwordsAndShortTokens(t *testing.T) {
	got := NewFrequencySummarizer().Keywords("The parties shall agree. An NY law applies to the parties.", 0)
	assert.ElementsMatch(t, []string{"agree", "law", "applies"}, got)
}
