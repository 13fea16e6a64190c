package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/pkg/config"
	appErrors "github.com/srp-dev/consolidation-api/pkg/errors"
)

type sessionKey struct{}

// WithSession stores the caller's session credential (cookie header value)
// for forwarding to the backend.
func WithSession(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, sessionKey{}, credential)
}

// SessionFrom extracts the forwarded session credential, if any.
func SessionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey{}).(string); ok {
		return v
	}
	return ""
}

// SubmissionFilter narrows the submissions listing.
type SubmissionFilter struct {
	CoordinatorID string
	GradeLevel    *int
	Subject       string
	AssignmentID  string
}

// Client talks to the main school-report backend. All reads are best-effort
// from the pipeline's perspective; callers degrade failures to empty data.
type Client struct {
	base          string
	sessionHeader string
	http          *http.Client
	logger        *zap.Logger
}

// NewClient builds an upstream client from config.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	header := cfg.SessionHeader
	if header == "" {
		header = "Cookie"
	}
	return &Client{
		base:          cfg.BaseURL,
		sessionHeader: header,
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Submissions lists submission records matching the filter.
func (c *Client) Submissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	q := url.Values{}
	if filter.CoordinatorID != "" {
		q.Set("coordinator_id", filter.CoordinatorID)
	}
	if filter.GradeLevel != nil {
		q.Set("grade_level", strconv.Itoa(*filter.GradeLevel))
	}
	if filter.Subject != "" {
		q.Set("subject", filter.Subject)
	}
	if filter.AssignmentID != "" {
		q.Set("report_assignment_id", filter.AssignmentID)
	}
	path := "/submissions"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var subs []models.Submission
	if err := c.getJSON(ctx, path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Submission fetches a single submission record by id.
func (c *Client) Submission(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := c.getJSON(ctx, "/submissions/"+url.PathEscape(id), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subjects lists subjects offered at a grade level.
func (c *Client) Subjects(ctx context.Context, gradeLevel int) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := c.getJSON(ctx, fmt.Sprintf("/admin/subjects/%d", gradeLevel), &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// Sections lists section records for a grade level.
func (c *Client) Sections(ctx context.Context, gradeLevel int) ([]models.Section, error) {
	var sections []models.Section
	if err := c.getJSON(ctx, fmt.Sprintf("/sections/grade/%d", gradeLevel), &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Assignment fetches report assignment metadata.
func (c *Client) Assignment(ctx context.Context, assignmentID string) (*models.ReportAssignment, error) {
	var assignment models.ReportAssignment
	if err := c.getJSON(ctx, "/reports/"+url.PathEscape(assignmentID), &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if credential := SessionFrom(ctx); credential != "" {
		req.Header.Set(c.sessionHeader, credential)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "upstream request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	c.logger.Debug("upstream request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return appErrors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, body),
			appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, path),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode upstream response")
	}
	return nil
}
