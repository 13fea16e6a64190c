package report

import "github.com/srp-dev/consolidation-api/internal/models"

// FallbackNote annotates tables rendered from placeholder traits.
const FallbackNote = "submission data is missing"

// DefaultTraits is the last-resort row label set when neither submissions
// nor the sections lookup yield anything for a grade.
var DefaultTraits = []string{"Masipag", "Matulungin", "Masunurin", "Magalang", "Matapat"}

// SectionResolver fetches section names for a grade level.
type SectionResolver func(grade int) ([]string, error)

// SectionCache memoizes section lookups per grade level so rendering many
// tables for the same grade issues at most one fetch. A failed lookup is
// cached as empty; the renderer then falls back to DefaultTraits.
type SectionCache struct {
	resolve SectionResolver
	byGrade map[int][]string
}

// NewSectionCache wraps a resolver with per-grade memoization.
func NewSectionCache(resolve SectionResolver) *SectionCache {
	return &SectionCache{resolve: resolve, byGrade: map[int][]string{}}
}

// Names returns the cached section names for a grade, fetching once.
func (c *SectionCache) Names(grade int) []string {
	if c == nil {
		return nil
	}
	if names, ok := c.byGrade[grade]; ok {
		return names
	}
	var names []string
	if c.resolve != nil {
		if fetched, err := c.resolve(grade); err == nil {
			names = fetched
		}
	}
	c.byGrade[grade] = names
	return names
}

// RenderTable builds a tabular view from aggregated rows. When no rows are
// available, placeholder rows are produced from the grade's section names
// (or DefaultTraits as a last resort) and the table is flagged so the
// consumer can show an advisory instead of presenting empty placeholders as
// real data.
func RenderTable(title string, rows []models.Row, columns []models.Column, grade *int, sections *SectionCache) models.Table {
	if len(rows) > 0 {
		return models.Table{Title: title, Columns: columns, Rows: rows}
	}

	traits := []string(nil)
	if grade != nil {
		traits = sections.Names(*grade)
	}
	if len(traits) == 0 {
		traits = DefaultTraits
	}
	placeholder := make([]models.Row, 0, len(traits))
	for _, trait := range traits {
		placeholder = append(placeholder, models.Row{"trait": trait})
	}
	return models.Table{
		Title:    title,
		Columns:  columns,
		Rows:     placeholder,
		Fallback: true,
		Note:     FallbackNote,
	}
}

// WithAverage appends the computed average row to an MPS table. Fallback
// tables keep their placeholder shape untouched.
func WithAverage(table models.Table) models.Table {
	if table.Fallback || len(table.Rows) == 0 {
		return table
	}
	table.Rows = append(table.Rows, AverageRow(table.Rows, table.Columns))
	return table
}
