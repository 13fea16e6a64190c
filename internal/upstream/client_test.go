package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
	"github.com/srp-dev/consolidation-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestSubmissionsFilterQuery(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/submissions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"submission_id":"sub-1","subject_name":"Math"}]`)) //nolint:errcheck
	})

	grade := 3
	subs, err := client.Submissions(context.Background(), SubmissionFilter{
		CoordinatorID: "coord-1",
		GradeLevel:    &grade,
		Subject:       "Math",
	})

	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].SubmissionID)
	assert.Equal(t, []string{"coord-1"}, gotQuery["coordinator_id"])
	assert.Equal(t, []string{"3"}, gotQuery["grade_level"])
	assert.Equal(t, []string{"Math"}, gotQuery["subject"])
}

func TestSessionCredentialForwarded(t *testing.T) {
	var gotCookie string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(`[]`)) //nolint:errcheck
	})

	ctx := WithSession(context.Background(), "session=abc123")
	_, err := client.Submissions(ctx, SubmissionFilter{})

	require.NoError(t, err)
	assert.Equal(t, "session=abc123", gotCookie)
}

func TestSubjectsAndSectionsPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/subjects/4":
			w.Write([]byte(`[{"subject_id":7,"subject_name":"Filipino"}]`)) //nolint:errcheck
		case "/sections/grade/4":
			w.Write([]byte(`[{"section_id":1,"section_name":"Sampaguita","grade_level":4}]`)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	})

	subjects, err := client.Subjects(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Filipino", subjects[0].SubjectName)

	sections, err := client.Sections(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Sampaguita", sections[0].SectionName)
}

func TestUpstreamErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Submission(context.Background(), "sub-1")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
}

func TestUpstreamMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not`)) //nolint:errcheck
	})

	_, err := client.Assignment(context.Background(), "ra-1")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
}
