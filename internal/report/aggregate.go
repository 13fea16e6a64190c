package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/srp-dev/consolidation-api/internal/models"
)

// maxAggregated holds the normalized keys of fields that merge by running
// maximum instead of sum. The list is authoritative; fields not on it are
// summed, so new highest/lowest-style columns must be registered here.
var maxAggregated = map[string]struct{}{
	"hs":             {},
	"highestscore":   {},
	"highest":        {},
	"ls":             {},
	"lowestscore":    {},
	"lowest":         {},
	"totalnoofitems": {},
	"totalitems":     {},
	"noofitems":      {},
	"target":         {},
}

// ParseNumeric interprets a row value as a number. Strings are accepted when
// they parse cleanly; everything else reports false and is treated as absent
// rather than zero.
func ParseNumeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// RowHasData reports whether at least one non-trait field parses to a
// nonzero number.
func RowHasData(row models.Row) bool {
	for key, v := range row {
		if NormalizeKey(key) == "trait" {
			continue
		}
		if f, ok := ParseNumeric(v); ok && f != 0 {
			return true
		}
	}
	return false
}

// MergeRows collapses rows from many submissions for one grade into a single
// synthetic row labelled "Grade <gradeLabel>". Max-style fields keep the
// running maximum, everything else sums. Non-numeric values are skipped.
func MergeRows(rows []models.Row, gradeLabel string) models.Row {
	type acc struct {
		value  float64
		stored string
		isMax  bool
	}
	totals := map[string]*acc{}

	for _, row := range rows {
		for key, v := range row {
			// Synonyms collapse through the registry aliases so hs and
			// highest_score feed one accumulator, not two.
			canon := CanonicalKey(key)
			if canon == "trait" || canon == "" {
				continue
			}
			f, ok := ParseNumeric(v)
			if !ok {
				continue
			}
			a, exists := totals[canon]
			if !exists {
				_, isMax := maxAggregated[canon]
				totals[canon] = &acc{stored: key, isMax: isMax, value: f}
				continue
			}
			if a.isMax {
				if f > a.value {
					a.value = f
				}
			} else {
				a.value += f
			}
		}
	}

	merged := models.Row{"trait": "Grade " + gradeLabel}
	for _, a := range totals {
		merged[a.stored] = a.value
	}
	return merged
}

// averagedColumns is the subset of MPS statistical columns that receive a
// computed value in the average row. Any column outside this set stays blank.
var averagedColumns = map[string]struct{}{
	"mean":   {},
	"median": {},
	"pl":     {},
	"mps":    {},
	"sd":     {},
	"target": {},
}

// AverageRow computes the arithmetic mean of the statistical columns across
// all rows that carry a parseable numeric value for them. Values render as
// two-decimal strings; a column with no numeric values at all stays an empty
// string, never NaN or zero.
func AverageRow(rows []models.Row, columns []models.Column) models.Row {
	avg := models.Row{"trait": "Average"}
	for _, col := range columns {
		if col.Key == "trait" {
			continue
		}
		if _, ok := averagedColumns[NormalizeKey(col.Key)]; !ok {
			avg[col.OriginalKey] = ""
			continue
		}
		var sum float64
		var count int
		for _, row := range rows {
			if v, ok := ValueFor(row, col); ok {
				if f, numeric := ParseNumeric(v); numeric {
					sum += f
					count++
				}
			}
		}
		if count == 0 {
			avg[col.OriginalKey] = ""
			continue
		}
		avg[col.OriginalKey] = fmt.Sprintf("%.2f", sum/float64(count))
	}
	return avg
}

// GradeFromTrait extracts the numeric grade from labels like "Grade 3".
func GradeFromTrait(trait string) (int, bool) {
	fields := strings.Fields(trait)
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			return n, true
		}
	}
	return 0, false
}

// SortRowsByGrade orders rows ascending by the numeric grade in their trait
// label; traits without a number sort lexicographically after numeric ones.
func SortRowsByGrade(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		gi, iok := GradeFromTrait(rows[i].Trait())
		gj, jok := GradeFromTrait(rows[j].Trait())
		switch {
		case iok && jok:
			return gi < gj
		case iok:
			return true
		case jok:
			return false
		default:
			return rows[i].Trait() < rows[j].Trait()
		}
	})
}
