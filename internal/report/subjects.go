package report

import (
	"sort"
	"strings"

	"github.com/srp-dev/consolidation-api/internal/models"
)

// CanonicalSubjectName reduces a subject display name to its grouping key.
func CanonicalSubjectName(name string) string {
	return NormalizeKey(name)
}

// SubjectGroup collects submissions that belong to one canonical subject.
type SubjectGroup struct {
	Key         string
	DisplayName string
	Submissions []models.Submission
}

// GroupSubmissionsBySubject buckets submissions by canonical subject name.
// Names that differ only by truncation ("Math" vs "Mathematics") merge into
// one bucket: a name whose key is a prefix of an existing bucket's key, or
// vice versa, joins that bucket. The display name is the longest variant
// seen, ties broken by first-seen. Groups come back sorted by display name.
func GroupSubmissionsBySubject(subs []models.Submission) []SubjectGroup {
	var groups []SubjectGroup

	findBucket := func(key string) int {
		for i := range groups {
			if groups[i].Key == key {
				return i
			}
			if len(key) >= 3 && len(groups[i].Key) >= 3 &&
				(strings.HasPrefix(groups[i].Key, key) || strings.HasPrefix(key, groups[i].Key)) {
				return i
			}
		}
		return -1
	}

	for _, sub := range subs {
		name := strings.TrimSpace(sub.SubjectName)
		if name == "" {
			name = "General"
		}
		key := CanonicalSubjectName(name)
		idx := findBucket(key)
		if idx < 0 {
			groups = append(groups, SubjectGroup{Key: key, DisplayName: name, Submissions: []models.Submission{sub}})
			continue
		}
		g := &groups[idx]
		g.Submissions = append(g.Submissions, sub)
		if len(name) > len(g.DisplayName) {
			g.DisplayName = name
		}
		// Keep the shorter key so further truncated variants still match.
		if len(key) < len(g.Key) {
			g.Key = key
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].DisplayName < groups[j].DisplayName
	})
	return groups
}

// GradesForSubject returns the sorted set of grade levels a subject's table
// should include: every grade the availability lookup says offers the
// subject, plus every grade actually present in the submissions. Grades with
// no submission still get an empty labelled row so the table shape is stable
// across subjects.
func GradesForSubject(group SubjectGroup, offeredAt []int) []int {
	set := map[int]struct{}{}
	for _, g := range offeredAt {
		set[g] = struct{}{}
	}
	for _, sub := range group.Submissions {
		if sub.GradeLevel != nil {
			set[*sub.GradeLevel] = struct{}{}
		}
	}
	grades := make([]int, 0, len(set))
	for g := range set {
		grades = append(grades, g)
	}
	sort.Ints(grades)
	return grades
}
