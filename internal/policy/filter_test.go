package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck_MatchesEveryDefaultKeywordCaseInsensitive(t *testing.T) {
	f := NewFilter()
	for _, k := range DefaultKeywords {
		for _, text := range []string{
			k,
			strings.ToUpper(k),
			"Quick question: " + k + "?",
		} {
			got, ok := f.Check(text)
			require.True(t, ok, "text=%q", text)
			require.NotEmpty(t, got)
		}
	}
}

func TestCheck_ReturnsFirstMatchInListOrder(t *testing.T) {
	f := NewFilter()
	// "partisan" appears in the text before "who should i vote for",
	// but the list order decides.
	got, ok := f.Check("Partisan friends keep asking: who should I vote for?")
	require.True(t, ok)
	require.Equal(t, "who should i vote for", got)
}

func TestCheck_ClearText(t *testing.T) {
	f := NewFilter()
	for _, text := range []string{
		"",
		"When is the polling date for phase 2?",
		"How many constituencies are reserved for SC candidates?",
		"What ID do I need at the booth?",
	} {
		got, ok := f.Check(text)
		require.False(t, ok, "text=%q", text)
		require.Empty(t, got)
	}
}

func TestCheck_SubstringMatch(t *testing.T) {
	f := NewFilter()
	got, ok := f.Check("Is the media unbiased?")
	require.True(t, ok)
	require.Equal(t, "bias", got)
}

func TestNewFilter_CustomKeywords(t *testing.T) {
	f := NewFilter(" Exit Poll ", "", "forecast")
	require.Equal(t, []string{"Exit Poll", "forecast"}, f.Keywords())

	got, ok := f.Check("what does the exit poll say")
	require.True(t, ok)
	require.Equal(t, "Exit Poll", got)

	_, ok = f.Check("who should i vote for")
	require.False(t, ok)
}

func TestCheck_NilFilter(t *testing.T) {
	var f *Filter
	_, ok := f.Check("endorse")
	require.False(t, ok)
}
