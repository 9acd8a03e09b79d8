package research

import (
	"strings"
	"testing"

	"news-shorts-pipeline/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleaner(t *testing.T) *Cleaner {
	t.Helper()
	c, err := NewCleaner(config.Default().Research.JunkPatterns)
	require.NoError(t, err)
	return c
}

func TestCleanStripsMarkupAndJunk(t *testing.T) {
	c := newTestCleaner(t)
	raw := `<p>Storm &amp; flood   warnings issued [+Video] across the coast.</p> <a href="x">Continue reading on the site</a>`
	assert.Equal(t, "Storm & flood warnings issued across the coast.", c.Clean(raw))
}

func TestCleanReadMoreIsCaseInsensitive(t *testing.T) {
	c := newTestCleaner(t)
	assert.Equal(t, "Markets rallied today.", c.Clean("Markets rallied today. READ MORE at the source"))
}

func TestSplitSentencesKeepsAbbreviations(t *testing.T) {
	got := SplitSentences(`The U.S. Senate met on Tuesday. Dr. Smith testified! Was it enough? "Yes," he said.`)
	assert.Equal(t, []string{
		"The U.S. Senate met on Tuesday.",
		"Dr. Smith testified!",
		"Was it enough?",
		`"Yes," he said.`,
	}, got)
}

func TestSelectSentences(t *testing.T) {
	short := "Too short."
	a := "The first sentence is comfortably long enough."
	b := "The second sentence also clears the twenty char bar."
	c := "A third sentence that should be included here."
	d := "A fourth sentence that must never be included."

	got := SelectSentences([]string{short, a, b, c, d})
	assert.Equal(t, strings.Join([]string{a, b, c}, " "), got)

	long1 := strings.Repeat("Long words here ", 6) + "end."
	long2 := strings.Repeat("More long words ", 6) + "end."
	got = SelectSentences([]string{long1, long2, c})
	assert.Equal(t, long1+" "+long2, got, "stops at two once past 180 chars")
}

func TestSummaryFits(t *testing.T) {
	assert.False(t, SummaryFits(strings.Repeat("x", 50), 50, 600))
	assert.True(t, SummaryFits(strings.Repeat("x", 51), 50, 600))
	assert.False(t, SummaryFits(strings.Repeat("x", 600), 50, 600))
}
