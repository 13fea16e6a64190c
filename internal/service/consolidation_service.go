package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/report"
	"github.com/srp-dev/consolidation-api/internal/upstream"
	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
)

// UpstreamClient is the backend fetch surface the pipeline consumes.
type UpstreamClient interface {
	Submissions(ctx context.Context, filter upstream.SubmissionFilter) ([]models.Submission, error)
	Submission(ctx context.Context, id string) (*models.Submission, error)
	Subjects(ctx context.Context, gradeLevel int) ([]models.Subject, error)
	Sections(ctx context.Context, gradeLevel int) ([]models.Section, error)
	Assignment(ctx context.Context, assignmentID string) (*models.ReportAssignment, error)
}

// ConsolidationFilter narrows which submissions enter a consolidation pass.
type ConsolidationFilter struct {
	CoordinatorID string
	GradeLevel    *int
	Subject       string
}

// gradeSpan is the elementary grade range the views always cover. Higher
// grade levels join a view when data or an explicit filter brings them in.
var gradeSpan = []int{1, 2, 3, 4, 5, 6}

// renderSpan unions the standard span with the grades actually present in
// the data and the explicitly requested grade, so secondary-level
// submissions appear in the by-grade view just as they do in the by-subject
// view.
func renderSpan(byGrade map[int][]normalized, requested *int) []int {
	seen := map[int]struct{}{}
	grades := make([]int, 0, len(gradeSpan)+len(byGrade))
	add := func(g int) {
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			grades = append(grades, g)
		}
	}
	for _, g := range gradeSpan {
		add(g)
	}
	for g := range byGrade {
		add(g)
	}
	if requested != nil {
		add(*requested)
	}
	sort.Ints(grades)
	return grades
}

// ConsolidationService runs the aggregation pipeline: fetch, normalize,
// resolve columns, group, aggregate, render. Every pass works on a fresh
// snapshot of fetched data; the per-pass lookups live only as long as the
// pass, while cross-request caching goes through the redis-backed cache.
type ConsolidationService struct {
	client   UpstreamClient
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewConsolidationService constructs the service.
func NewConsolidationService(client UpstreamClient, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *ConsolidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsolidationService{
		client:   client,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// lookups is the per-pass memoization cache. It is created for one
// top-level consolidation load and discarded with it.
type lookups struct {
	svc         *ConsolidationService
	ctx         context.Context
	subjects    map[int]report.SubjectLookup
	assignments map[string]*models.ReportAssignment
	sections    *report.SectionCache
}

func (s *ConsolidationService) newLookups(ctx context.Context) *lookups {
	l := &lookups{
		svc:         s,
		ctx:         ctx,
		subjects:    map[int]report.SubjectLookup{},
		assignments: map[string]*models.ReportAssignment{},
	}
	l.sections = report.NewSectionCache(func(grade int) ([]string, error) {
		sections, err := s.fetchSections(ctx, grade)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(sections))
		for _, sec := range sections {
			names = append(names, sec.SectionName)
		}
		return names, nil
	})
	return l
}

// subjectsFor returns the subject id -> name map for a grade, memoized per
// pass and backed by the shared cache. Fetch failures degrade to an empty
// map and are logged, never surfaced.
func (l *lookups) subjectsFor(grade int) report.SubjectLookup {
	if cached, ok := l.subjects[grade]; ok {
		return cached
	}
	lookup := report.SubjectLookup{}
	for _, subj := range l.svc.fetchSubjects(l.ctx, grade) {
		lookup[subj.SubjectID] = subj.SubjectName
	}
	l.subjects[grade] = lookup
	return lookup
}

// assignmentFor memoizes assignment metadata per pass. A failed fetch is
// remembered as nil so the pass issues the lookup once.
func (l *lookups) assignmentFor(id string) *models.ReportAssignment {
	if id == "" {
		return nil
	}
	if cached, ok := l.assignments[id]; ok {
		return cached
	}
	start := time.Now()
	assignment, err := l.svc.client.Assignment(l.ctx, id)
	l.svc.metrics.ObserveUpstream("assignment", err == nil, time.Since(start))
	if err != nil {
		l.svc.logger.Warn("assignment fetch failed", zap.String("assignment_id", id), zap.Error(err))
		assignment = nil
	}
	l.assignments[id] = assignment
	return assignment
}

func (s *ConsolidationService) fetchSubjects(ctx context.Context, grade int) []models.Subject {
	cacheKey := CacheKey("subjects", strconv.Itoa(grade))
	var cached []models.Subject
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached
	}
	start := time.Now()
	subjects, err := s.client.Subjects(ctx, grade)
	s.metrics.ObserveUpstream("subjects", err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("subjects fetch failed", zap.Int("grade", grade), zap.Error(err))
		return nil
	}
	_ = s.cache.Set(ctx, cacheKey, subjects, s.cacheTTL)
	return subjects
}

func (s *ConsolidationService) fetchSections(ctx context.Context, grade int) ([]models.Section, error) {
	cacheKey := CacheKey("sections", strconv.Itoa(grade))
	var cached []models.Section
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	start := time.Now()
	sections, err := s.client.Sections(ctx, grade)
	s.metrics.ObserveUpstream("sections", err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("sections fetch failed", zap.Int("grade", grade), zap.Error(err))
		return nil, err
	}
	_ = s.cache.Set(ctx, cacheKey, sections, s.cacheTTL)
	return sections, nil
}

// normalized couples a submission with its normalized fields payload.
type normalized struct {
	sub    models.Submission
	fields models.SubmissionFields
}

// loadSubmissions fetches and normalizes the submissions for a pass.
// Draft/Pending/Rejected submissions and delegated assignment copies are
// dropped; a fetch failure degrades to an empty set with an advisory note.
func (s *ConsolidationService) loadSubmissions(ctx context.Context, filter ConsolidationFilter, look *lookups) ([]normalized, []string) {
	start := time.Now()
	subs, err := s.client.Submissions(ctx, upstream.SubmissionFilter{
		CoordinatorID: filter.CoordinatorID,
		GradeLevel:    filter.GradeLevel,
		Subject:       filter.Subject,
	})
	s.metrics.ObserveUpstream("submissions", err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("submissions fetch failed", zap.Error(err))
		return nil, []string{report.FallbackNote}
	}

	var notes []string
	out := make([]normalized, 0, len(subs))
	for _, sub := range subs {
		if !sub.Status.Countable() {
			continue
		}
		if assignment := look.assignmentFor(sub.ReportAssignmentID); assignment != nil && assignment.IsDelegated() {
			continue
		}
		out = append(out, normalized{
			sub:    sub,
			fields: report.NormalizeFields(sub.Fields, s.logger),
		})
	}
	if len(out) == 0 {
		notes = append(notes, report.FallbackNote)
	}
	return out, notes
}

// ByGrade builds the grade-grouped consolidation: per grade level, a block
// per coordinator, a sub-block per subject submission, each with its LAEMPL
// table and its MPS table (average row included).
func (s *ConsolidationService) ByGrade(ctx context.Context, filter ConsolidationFilter) (*models.Consolidation, error) {
	cacheKey := consolidationCacheKey(models.GroupByGrade, filter)
	var cached models.Consolidation
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	start := time.Now()
	look := s.newLookups(ctx)
	items, notes := s.loadSubmissions(ctx, filter, look)

	byGrade := map[int][]normalized{}
	for _, item := range items {
		if item.sub.GradeLevel == nil {
			continue
		}
		byGrade[*item.sub.GradeLevel] = append(byGrade[*item.sub.GradeLevel], item)
	}

	result := &models.Consolidation{Mode: models.GroupByGrade, GeneratedAt: time.Now().UTC()}
	for _, grade := range renderSpan(byGrade, filter.GradeLevel) {
		grade := grade
		if filter.GradeLevel != nil && *filter.GradeLevel != grade {
			continue
		}
		graded := byGrade[grade]
		if len(graded) == 0 && filter.GradeLevel == nil {
			continue
		}
		group := models.GradeGroup{GradeLevel: grade, Label: fmt.Sprintf("Grade %d", grade)}
		subjectsLookup := look.subjectsFor(grade)

		if len(graded) == 0 {
			// Explicitly requested grade with nothing submitted: render the
			// placeholder tables so the caller still gets a stable shape.
			laemplCols := report.ExtractColumns(nil, report.LAEMPLRegistry(), subjectsLookup)
			mpsCols := report.ExtractColumns(nil, report.MPSRegistry(), subjectsLookup)
			group.Coordinators = append(group.Coordinators, models.CoordinatorBlock{
				Submissions: []models.SubmissionTables{{
					LAEMPL: report.RenderTable("LAEMPL", nil, laemplCols, &grade, look.sections),
					MPS:    report.RenderTable("MPS", nil, mpsCols, &grade, look.sections),
				}},
			})
			result.Fallback = true
			result.Grades = append(result.Grades, group)
			continue
		}

		byCoordinator := map[string][]normalized{}
		var coordinatorOrder []string
		for _, item := range graded {
			name := item.sub.CoordinatorName
			if name == "" {
				name = item.sub.SubmittedByName
			}
			if _, seen := byCoordinator[name]; !seen {
				coordinatorOrder = append(coordinatorOrder, name)
			}
			byCoordinator[name] = append(byCoordinator[name], item)
		}

		for _, name := range coordinatorOrder {
			block := models.CoordinatorBlock{CoordinatorName: name}
			for _, item := range byCoordinator[name] {
				laemplCols := report.ExtractColumns(item.fields.Rows, report.LAEMPLRegistry(), subjectsLookup)
				mpsCols := report.ExtractColumns(item.fields.MPSRows, report.MPSRegistry(), subjectsLookup)
				tables := models.SubmissionTables{
					SubmissionID:    item.sub.SubmissionID,
					SubjectName:     item.sub.SubjectName,
					SubmittedByName: item.sub.SubmittedByName,
					LAEMPL:          report.RenderTable("LAEMPL", item.fields.Rows, laemplCols, &grade, look.sections),
					MPS:             report.WithAverage(report.RenderTable("MPS", item.fields.MPSRows, mpsCols, &grade, look.sections)),
				}
				if tables.LAEMPL.Fallback || tables.MPS.Fallback {
					result.Fallback = true
				}
				block.Submissions = append(block.Submissions, tables)
			}
			group.Coordinators = append(group.Coordinators, block)
		}
		if len(group.Coordinators) > 0 {
			result.Grades = append(result.Grades, group)
		}
	}

	if result.Fallback || len(result.Grades) == 0 {
		result.Fallback = true
		notes = appendNote(notes, report.FallbackNote)
	}
	result.Notes = notes

	s.metrics.ObservePipeline(string(models.GroupByGrade), time.Since(start))
	_ = s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	return result, nil
}

// BySubject builds the subject-grouped consolidation: one view per canonical
// subject whose rows are grade levels. Rows for grades with submissions are
// merged across submissions; grades the subject is offered at but with no
// submission appear as empty labelled rows so the table shape stays stable.
func (s *ConsolidationService) BySubject(ctx context.Context, filter ConsolidationFilter) (*models.Consolidation, error) {
	cacheKey := consolidationCacheKey(models.GroupBySubject, filter)
	var cached models.Consolidation
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	start := time.Now()
	look := s.newLookups(ctx)
	items, notes := s.loadSubmissions(ctx, filter, look)

	subs := make([]models.Submission, 0, len(items))
	fieldsByID := map[string]models.SubmissionFields{}
	for _, item := range items {
		subs = append(subs, item.sub)
		fieldsByID[item.sub.SubmissionID] = item.fields
	}

	result := &models.Consolidation{Mode: models.GroupBySubject, GeneratedAt: time.Now().UTC()}
	mergedSubjects := report.SubjectLookup{}
	for _, grade := range gradeSpan {
		for id, name := range look.subjectsFor(grade) {
			mergedSubjects[id] = name
		}
	}

	for _, group := range report.GroupSubmissionsBySubject(subs) {
		offered := s.gradesOffering(look, group.Key)
		grades := report.GradesForSubject(group, offered)

		var laemplRows, mpsRows []models.Row
		for _, grade := range grades {
			label := strconv.Itoa(grade)
			var gradeLAEMPL, gradeMPS []models.Row
			for _, sub := range group.Submissions {
				if sub.GradeLevel == nil || *sub.GradeLevel != grade {
					continue
				}
				fields := fieldsByID[sub.SubmissionID]
				gradeLAEMPL = append(gradeLAEMPL, fields.Rows...)
				gradeMPS = append(gradeMPS, fields.MPSRows...)
			}
			if len(gradeLAEMPL) > 0 {
				laemplRows = append(laemplRows, report.MergeRows(gradeLAEMPL, label))
			} else {
				laemplRows = append(laemplRows, models.Row{"trait": "Grade " + label})
			}
			if len(gradeMPS) > 0 {
				mpsRows = append(mpsRows, report.MergeRows(gradeMPS, label))
			} else {
				mpsRows = append(mpsRows, models.Row{"trait": "Grade " + label})
			}
		}
		report.SortRowsByGrade(laemplRows)
		report.SortRowsByGrade(mpsRows)

		laemplCols := report.ExtractColumns(laemplRows, report.LAEMPLRegistry(), mergedSubjects)
		mpsCols := report.ExtractColumns(mpsRows, report.MPSRegistry(), mergedSubjects)
		view := models.SubjectView{
			Subject: group.DisplayName,
			LAEMPL:  report.RenderTable("LAEMPL", laemplRows, laemplCols, nil, look.sections),
			MPS:     report.WithAverage(report.RenderTable("MPS", mpsRows, mpsCols, nil, look.sections)),
		}
		if view.LAEMPL.Fallback || view.MPS.Fallback {
			result.Fallback = true
		}
		result.Subjects = append(result.Subjects, view)
	}

	if result.Fallback || len(result.Subjects) == 0 {
		result.Fallback = true
		notes = appendNote(notes, report.FallbackNote)
	}
	result.Notes = notes

	s.metrics.ObservePipeline(string(models.GroupBySubject), time.Since(start))
	_ = s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	return result, nil
}

// SubmissionTables renders one submission's LAEMPL/MPS tables, used by the
// single-submission CSV export.
func (s *ConsolidationService) SubmissionTables(ctx context.Context, submissionID string) (*models.SubmissionTables, error) {
	startFetch := time.Now()
	sub, err := s.client.Submission(ctx, submissionID)
	s.metrics.ObserveUpstream("submission", err == nil, time.Since(startFetch))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}

	look := s.newLookups(ctx)
	fields := report.NormalizeFields(sub.Fields, s.logger)
	var subjects report.SubjectLookup
	grade := sub.GradeLevel
	if grade != nil {
		subjects = look.subjectsFor(*grade)
	}
	laemplCols := report.ExtractColumns(fields.Rows, report.LAEMPLRegistry(), subjects)
	mpsCols := report.ExtractColumns(fields.MPSRows, report.MPSRegistry(), subjects)
	return &models.SubmissionTables{
		SubmissionID:    sub.SubmissionID,
		SubjectName:     sub.SubjectName,
		SubmittedByName: sub.SubmittedByName,
		LAEMPL:          report.RenderTable("LAEMPL", fields.Rows, laemplCols, grade, look.sections),
		MPS:             report.WithAverage(report.RenderTable("MPS", fields.MPSRows, mpsCols, grade, look.sections)),
	}, nil
}

// gradesOffering returns the grades whose subject list contains the
// canonical subject key. Matching tolerates truncated variants the same way
// subject grouping does, since the bucket keeps the shortest key seen.
func (s *ConsolidationService) gradesOffering(look *lookups, subjectKey string) []int {
	matches := func(name string) bool {
		key := report.CanonicalSubjectName(name)
		if key == subjectKey {
			return true
		}
		return len(key) >= 3 && len(subjectKey) >= 3 &&
			(strings.HasPrefix(key, subjectKey) || strings.HasPrefix(subjectKey, key))
	}
	var offered []int
	for _, grade := range gradeSpan {
		for _, name := range look.subjectsFor(grade) {
			if matches(name) {
				offered = append(offered, grade)
				break
			}
		}
	}
	return offered
}

func consolidationCacheKey(mode models.GroupingMode, filter ConsolidationFilter) string {
	grade := ""
	if filter.GradeLevel != nil {
		grade = strconv.Itoa(*filter.GradeLevel)
	}
	return CacheKey("view", string(mode), filter.CoordinatorID, grade, report.CanonicalSubjectName(filter.Subject))
}

func appendNote(notes []string, note string) []string {
	for _, n := range notes {
		if n == note {
			return notes
		}
	}
	return append(notes, note)
}
