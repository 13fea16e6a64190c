package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCombined(t *testing.T) {
	laempl := Table{
		Title:   "LAEMPL",
		Headers: []string{"Trait", "M", "F"},
		Rows:    [][]string{{"Masipag", "12", "14"}},
	}
	mps := Table{
		Title:   "MPS",
		Headers: []string{"Trait", "MPS"},
		Rows:    [][]string{{"Grade 1", "85.00"}},
	}

	data, err := NewCSVExporter().RenderCombined(laempl, mps)
	require.NoError(t, err)

	text := string(data)
	sections := strings.Split(text, "\n\n")
	require.Len(t, sections, 2)
	assert.True(t, strings.HasPrefix(sections[0], "Trait,M,F\n"))
	assert.Contains(t, sections[1], "Grade 1,85.00")
}

func TestRenderCombinedQuotesSpecialCharacters(t *testing.T) {
	table := Table{
		Headers: []string{"Trait", "Remarks"},
		Rows:    [][]string{{"Masipag", `says "all good", mostly`}},
	}

	data, err := NewCSVExporter().RenderCombined(table)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"says ""all good"", mostly"`)
}

func TestRenderCombinedPadsShortRows(t *testing.T) {
	table := Table{
		Headers: []string{"Trait", "M", "F"},
		Rows:    [][]string{{"Masipag"}},
	}

	data, err := NewCSVExporter().RenderCombined(table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Masipag,,", lines[1])
}

func TestRenderCombinedRejectsHeaderlessTable(t *testing.T) {
	_, err := NewCSVExporter().RenderCombined(Table{Title: "empty"})
	assert.Error(t, err)
}
