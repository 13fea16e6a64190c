package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srp-dev/consolidation-api/internal/models"
)

func subjectSub(name string, grade int) models.Submission {
	g := grade
	return models.Submission{SubjectName: name, GradeLevel: &g}
}

func TestGroupSubmissionsBySubjectMergesTruncatedNames(t *testing.T) {
	subs := []models.Submission{
		subjectSub("Math", 1),
		subjectSub("Mathematics", 2),
		subjectSub("MATHEMATICS", 3),
		subjectSub("Reading", 1),
	}

	groups := GroupSubmissionsBySubject(subs)

	require.Len(t, groups, 2)
	assert.Equal(t, "Mathematics", groups[0].DisplayName, "longest variant wins")
	assert.Len(t, groups[0].Submissions, 3)
	assert.Equal(t, "Reading", groups[1].DisplayName)
}

func TestGroupSubmissionsBySubjectShortKeysNeverPrefixMerge(t *testing.T) {
	subs := []models.Submission{
		subjectSub("PE", 1),
		subjectSub("PEHM", 2),
	}

	groups := GroupSubmissionsBySubject(subs)

	assert.Len(t, groups, 2, "keys shorter than three characters stay separate")
}

func TestGroupSubmissionsBySubjectEmptyNameFallsBackToGeneral(t *testing.T) {
	groups := GroupSubmissionsBySubject([]models.Submission{subjectSub("  ", 1)})

	require.Len(t, groups, 1)
	assert.Equal(t, "General", groups[0].DisplayName)
}

func TestGroupSubmissionsBySubjectSortedByDisplayName(t *testing.T) {
	subs := []models.Submission{
		subjectSub("Science", 1),
		subjectSub("Filipino", 1),
		subjectSub("Araling Panlipunan", 1),
	}

	groups := GroupSubmissionsBySubject(subs)

	require.Len(t, groups, 3)
	assert.Equal(t, "Araling Panlipunan", groups[0].DisplayName)
	assert.Equal(t, "Filipino", groups[1].DisplayName)
	assert.Equal(t, "Science", groups[2].DisplayName)
}

func TestGradesForSubjectUnionOfferedAndPresent(t *testing.T) {
	group := SubjectGroup{Submissions: []models.Submission{
		subjectSub("Math", 2),
		subjectSub("Math", 5),
	}}

	grades := GradesForSubject(group, []int{1, 2, 3})

	assert.Equal(t, []int{1, 2, 3, 5}, grades)
}

func TestGradesForSubjectNilGradeIgnored(t *testing.T) {
	group := SubjectGroup{Submissions: []models.Submission{{SubjectName: "Math"}}}

	grades := GradesForSubject(group, []int{4})

	assert.Equal(t, []int{4}, grades)
}
