package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/report"
	"github.com/srp-dev/consolidation-api/pkg/export"
	"github.com/srp-dev/consolidation-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type consolidationSource interface {
	ByGrade(ctx context.Context, filter ConsolidationFilter) (*models.Consolidation, error)
	BySubject(ctx context.Context, filter ConsolidationFilter) (*models.Consolidation, error)
	SubmissionTables(ctx context.Context, submissionID string) (*models.SubmissionTables, error)
}

type workbookRenderer interface {
	Render(sheets []export.Sheet) ([]byte, error)
}

type csvRenderer interface {
	RenderCombined(tables ...export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(sheets []export.Sheet) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService turns a consolidation snapshot into a downloadable artefact.
type ExportService struct {
	source   consolidationSource
	storage  fileStorage
	workbook workbookRenderer
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(source consolidationSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		source:   source,
		storage:  store,
		workbook: export.NewWorkbookExporter(),
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the artefact for an export job and stores the rendered
// file. Nothing is stored when rendering fails, so a failed export never
// leaves a partial file behind.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	var payload []byte
	var err error
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.renderCSV(ctx, job)
	case models.ExportFormatXLSX:
		payload, err = s.renderSheets(ctx, job, s.workbook.Render)
	case models.ExportFormatPDF:
		payload, err = s.renderSheets(ctx, job, s.pdf.Render)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns the stored file for streaming.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes artefacts older than the TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderCSV(ctx context.Context, job *models.ExportJob) ([]byte, error) {
	if job.Params.SubmissionID == "" {
		return nil, fmt.Errorf("csv export requires a submission id")
	}
	tables, err := s.source.SubmissionTables(ctx, job.Params.SubmissionID)
	if err != nil {
		return nil, err
	}
	return s.csv.RenderCombined(toExportTable(tables.LAEMPL), toExportTable(tables.MPS))
}

func (s *ExportService) renderSheets(ctx context.Context, job *models.ExportJob, render func([]export.Sheet) ([]byte, error)) ([]byte, error) {
	filter := ConsolidationFilter{
		CoordinatorID: job.Params.CoordinatorID,
		GradeLevel:    job.Params.GradeLevel,
		Subject:       job.Params.Subject,
	}
	var sheets []export.Sheet
	switch job.Params.Grouping {
	case models.GroupBySubject:
		cons, err := s.source.BySubject(ctx, filter)
		if err != nil {
			return nil, err
		}
		sheets = subjectSheets(cons)
	default:
		cons, err := s.source.ByGrade(ctx, filter)
		if err != nil {
			return nil, err
		}
		sheets = gradeSheets(cons)
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	return render(sheets)
}

// gradeSheets lays out one sheet per grade: a block per coordinator
// submission with the LAEMPL table followed by the MPS table.
func gradeSheets(cons *models.Consolidation) []export.Sheet {
	sheets := make([]export.Sheet, 0, len(cons.Grades))
	for _, grade := range cons.Grades {
		sheet := export.Sheet{Name: grade.Label}
		for _, coordinator := range grade.Coordinators {
			for _, sub := range coordinator.Submissions {
				heading := coordinator.CoordinatorName
				if sub.SubjectName != "" {
					if heading != "" {
						heading += " - "
					}
					heading += sub.SubjectName
				}
				sheet.Blocks = append(sheet.Blocks, export.Block{
					Heading: heading,
					Tables:  []export.Table{toExportTable(sub.LAEMPL), toExportTable(sub.MPS)},
				})
			}
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// subjectSheets lays out one sheet per subject; rows are grade levels.
func subjectSheets(cons *models.Consolidation) []export.Sheet {
	sheets := make([]export.Sheet, 0, len(cons.Subjects))
	for _, view := range cons.Subjects {
		sheets = append(sheets, export.Sheet{
			Name: view.Subject,
			Blocks: []export.Block{{
				Tables: []export.Table{toExportTable(view.LAEMPL), toExportTable(view.MPS)},
			}},
		})
	}
	return sheets
}

// toExportTable flattens a rendered table into string cells, leading with
// the trait column.
func toExportTable(table models.Table) export.Table {
	headers := make([]string, 0, len(table.Columns)+1)
	headers = append(headers, "Trait")
	for _, col := range table.Columns {
		headers = append(headers, col.Label)
	}
	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make([]string, 0, len(headers))
		record = append(record, row.Trait())
		for _, col := range table.Columns {
			record = append(record, formatCell(row, col))
		}
		rows = append(rows, record)
	}
	return export.Table{Title: table.Title, Headers: headers, Rows: rows, Note: table.Note}
}

func formatCell(row models.Row, col models.Column) string {
	v, ok := report.ValueFor(row, col)
	if !ok || v == nil {
		return ""
	}
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

func buildFilename(job *models.ExportJob) string {
	date := time.Now().UTC().Format("2006-01-02")
	switch job.Params.Format {
	case models.ExportFormatCSV:
		return fmt.Sprintf("Combined_Reports_%s.csv", job.Params.SubmissionID)
	case models.ExportFormatPDF:
		return fmt.Sprintf("LAEMPL_MPS_Reports_By_%s_%s.pdf", groupingLabel(job.Params.Grouping), date)
	default:
		return fmt.Sprintf("LAEMPL_MPS_Reports_By_%s_%s.xlsx", groupingLabel(job.Params.Grouping), date)
	}
}

func groupingLabel(mode models.GroupingMode) string {
	if mode == models.GroupBySubject {
		return "Subject"
	}
	return "Grade"
}
