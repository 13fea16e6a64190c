package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/srp-dev/consolidation-api/internal/models"
)

// SubjectColumnPrefix marks dynamic per-subject score columns.
const SubjectColumnPrefix = "subject_"

// NormalizeKey lower-cases a stored column key and strips everything that is
// not a letter or digit, so "Total Score", "total_score", and "TOTAL-SCORE"
// collapse to the same identity. Synonyms such as hs/highest_score do NOT
// collapse here; those go through the registry alias table.
func NormalizeKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ColumnSpec declares one required column: its canonical key, display label,
// and the stored-key aliases it absorbs.
type ColumnSpec struct {
	Key     string
	Label   string
	Aliases []string
}

// Registry is the ordered list of required columns for one table kind. Every
// component that needs column labels or value lookups consults a registry so
// the grade-grouped and subject-grouped views cannot drift apart.
type Registry struct {
	Specs []ColumnSpec
}

// LAEMPLRegistry lists the standard LAEMPL columns in render order.
func LAEMPLRegistry() Registry {
	return Registry{Specs: []ColumnSpec{
		{Key: "m", Label: "M", Aliases: []string{"male"}},
		{Key: "f", Label: "F", Aliases: []string{"female"}},
		{Key: "gmrc", Label: "GMRC"},
		{Key: "math", Label: "Math", Aliases: []string{"mathematics"}},
		{Key: "lang", Label: "Language", Aliases: []string{"language"}},
		{Key: "read", Label: "Reading", Aliases: []string{"reading"}},
		{Key: "makabansa", Label: "Makabansa"},
	}}
}

// MPSRegistry lists the standard MPS statistical columns in render order.
func MPSRegistry() Registry {
	return Registry{Specs: []ColumnSpec{
		{Key: "total_items", Label: "Total No. of Items", Aliases: []string{"total_no._of_items", "total_no_of_items", "no_of_items"}},
		{Key: "total_score", Label: "Total Score", Aliases: []string{"totalscore"}},
		{Key: "mean", Label: "Mean"},
		{Key: "median", Label: "Median"},
		{Key: "pl", Label: "PL", Aliases: []string{"percentile_level", "percentile"}},
		{Key: "mps", Label: "MPS", Aliases: []string{"mean_percentage_score"}},
		{Key: "sd", Label: "SD", Aliases: []string{"standard_deviation", "stdev", "std"}},
		{Key: "target", Label: "Target"},
		{Key: "hs", Label: "HS", Aliases: []string{"highest_score", "highest"}},
		{Key: "ls", Label: "LS", Aliases: []string{"lowest_score", "lowest"}},
	}}
}

// canonicalAliases maps the normalized form of every registry alias to the
// normalized form of its canonical key, across both table kinds.
var canonicalAliases = buildCanonicalAliases(LAEMPLRegistry(), MPSRegistry())

func buildCanonicalAliases(regs ...Registry) map[string]string {
	m := map[string]string{}
	for _, reg := range regs {
		for _, spec := range reg.Specs {
			canon := NormalizeKey(spec.Key)
			m[canon] = canon
			for _, alias := range spec.Aliases {
				m[NormalizeKey(alias)] = canon
			}
		}
	}
	return m
}

// CanonicalKey reduces a stored key to the identity its column resolves to:
// normalization first, then the registry alias table, so hs and
// highest_score share one accumulator wherever values are merged.
func CanonicalKey(raw string) string {
	norm := NormalizeKey(raw)
	if canon, ok := canonicalAliases[norm]; ok {
		return canon
	}
	return norm
}

// SubjectLookup resolves subject ids to display names.
type SubjectLookup map[int]string

// ExtractColumns resolves the ordered column list for a set of rows.
// Required columns always appear first in registry order, bound to whichever
// stored key matched through normalization or the alias table. Remaining row
// keys are appended as extra columns, deduplicated by normalized key, with
// subject_<id> keys labelled through the subject lookup. Empty input yields
// the required columns only, so headers still render for empty tables.
func ExtractColumns(rows []models.Row, reg Registry, subjects SubjectLookup) []models.Column {
	// Stored keys across all rows, trait excluded. Map iteration order is
	// random, so the scan is sorted to keep resolution deterministic and
	// idempotent.
	var orderedKeys []string
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row {
			if NormalizeKey(key) == "trait" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			orderedKeys = append(orderedKeys, key)
		}
	}
	sort.Strings(orderedKeys)

	columns := make([]models.Column, 0, len(reg.Specs))
	claimed := map[string]struct{}{}
	for _, spec := range reg.Specs {
		col := models.Column{Key: spec.Key, OriginalKey: spec.Key, Label: spec.Label}
		accepted := map[string]struct{}{NormalizeKey(spec.Key): {}}
		for _, alias := range spec.Aliases {
			accepted[NormalizeKey(alias)] = struct{}{}
		}
		for _, stored := range orderedKeys {
			if _, ok := accepted[NormalizeKey(stored)]; ok {
				if _, taken := claimed[stored]; taken {
					continue
				}
				if col.OriginalKey == spec.Key && stored != spec.Key {
					col.OriginalKey = stored
				}
				// Every matching synonym is claimed so duplicates like having
				// both hs and highest_score do not surface as extra columns.
				claimed[stored] = struct{}{}
			}
		}
		columns = append(columns, col)
	}

	extraSeen := map[string]struct{}{}
	for _, spec := range reg.Specs {
		extraSeen[NormalizeKey(spec.Key)] = struct{}{}
		for _, alias := range spec.Aliases {
			extraSeen[NormalizeKey(alias)] = struct{}{}
		}
	}
	for _, stored := range orderedKeys {
		if _, ok := claimed[stored]; ok {
			continue
		}
		norm := NormalizeKey(stored)
		if _, ok := extraSeen[norm]; ok {
			continue
		}
		extraSeen[norm] = struct{}{}
		columns = append(columns, models.Column{
			Key:         norm,
			OriginalKey: stored,
			Label:       columnLabel(stored, subjects),
		})
	}
	return columns
}

// columnLabel derives a display label for a dynamic column.
func columnLabel(stored string, subjects SubjectLookup) string {
	if strings.HasPrefix(strings.ToLower(stored), SubjectColumnPrefix) {
		idPart := stored[len(SubjectColumnPrefix):]
		if id, err := strconv.Atoi(idPart); err == nil {
			if name, ok := subjects[id]; ok && name != "" {
				return name
			}
			return fmt.Sprintf("Subject %d", id)
		}
	}
	// Title-case underscored keys: "total_score" -> "Total Score".
	parts := strings.FieldsFunc(stored, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return stored
	}
	return strings.Join(parts, " ")
}

// ValueFor reads a row value through a resolved column, trying the bound
// original key first and falling back to a normalized-key scan.
func ValueFor(row models.Row, col models.Column) (interface{}, bool) {
	if v, ok := row[col.OriginalKey]; ok {
		return v, true
	}
	want := NormalizeKey(col.Key)
	for key, v := range row {
		if NormalizeKey(key) == want {
			return v, true
		}
	}
	return nil, false
}
