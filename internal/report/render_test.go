package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srp-dev/consolidation-api/internal/models"
)

func TestSectionCacheMemoizesPerGrade(t *testing.T) {
	calls := 0
	cache := NewSectionCache(func(grade int) ([]string, error) {
		calls++
		return []string{"Sampaguita", "Rosal"}, nil
	})

	first := cache.Names(3)
	second := cache.Names(3)

	assert.Equal(t, []string{"Sampaguita", "Rosal"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestSectionCacheCachesFailures(t *testing.T) {
	calls := 0
	cache := NewSectionCache(func(grade int) ([]string, error) {
		calls++
		return nil, errors.New("upstream down")
	})

	assert.Empty(t, cache.Names(2))
	assert.Empty(t, cache.Names(2))
	assert.Equal(t, 1, calls)
}

func TestRenderTableWithRows(t *testing.T) {
	rows := []models.Row{{"trait": "Masipag", "m": 3}}
	columns := ExtractColumns(rows, LAEMPLRegistry(), nil)

	table := RenderTable("LAEMPL", rows, columns, nil, nil)

	assert.False(t, table.Fallback)
	assert.Empty(t, table.Note)
	assert.Equal(t, rows, table.Rows)
}

func TestRenderTableFallbackUsesSectionNames(t *testing.T) {
	cache := NewSectionCache(func(grade int) ([]string, error) {
		return []string{"Mabini", "Rizal"}, nil
	})
	grade := 4
	columns := ExtractColumns(nil, LAEMPLRegistry(), nil)

	table := RenderTable("LAEMPL", nil, columns, &grade, cache)

	assert.True(t, table.Fallback)
	assert.Equal(t, FallbackNote, table.Note)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Mabini", table.Rows[0].Trait())
	assert.Equal(t, "Rizal", table.Rows[1].Trait())
}

func TestRenderTableFallbackDefaultTraits(t *testing.T) {
	table := RenderTable("LAEMPL", nil, nil, nil, nil)

	assert.True(t, table.Fallback)
	require.Len(t, table.Rows, len(DefaultTraits))
	for i, trait := range DefaultTraits {
		assert.Equal(t, trait, table.Rows[i].Trait())
	}
}

func TestWithAverageAppendsRow(t *testing.T) {
	rows := []models.Row{
		{"trait": "Grade 1", "mps": 80},
		{"trait": "Grade 2", "mps": 90},
	}
	columns := ExtractColumns(rows, MPSRegistry(), nil)
	table := RenderTable("MPS", rows, columns, nil, nil)

	table = WithAverage(table)

	require.Len(t, table.Rows, 3)
	last := table.Rows[len(table.Rows)-1]
	assert.Equal(t, "Average", last.Trait())
	assert.Equal(t, "85.00", last["mps"])
}

func TestWithAverageSkipsFallback(t *testing.T) {
	table := RenderTable("MPS", nil, nil, nil, nil)

	got := WithAverage(table)

	assert.Equal(t, table, got, "placeholder tables keep their shape")
}
