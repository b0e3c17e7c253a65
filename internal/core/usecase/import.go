package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

// FindingRow is one unvalidated row from an import source (e.g. an Excel
// workbook). Severity, status, and department arrive as raw text and are
// normalized through the shared vocabulary before storage.
type FindingRow struct {
	Row            int
	Title          string
	Description    string
	Recommendation string
	Severity       string
	Status         string
	Department     string
	ProjectType    string
	Year           int
	RiskScore      float64
}

type ImportReport struct {
	Imported  int
	RowErrors []RowError
}

type RowError struct {
	Row     int
	Message string
}

// ImportFindingsUseCase normalizes and stores finding rows. A bad row is
// reported and skipped; it never aborts the batch.
type ImportFindingsUseCase struct {
	store  ports.FindingStore
	vocab  *domain.Vocabulary
	logger *slog.Logger
}

func NewImportFindingsUseCase(store ports.FindingStore, vocab *domain.Vocabulary, logger *slog.Logger) *ImportFindingsUseCase {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportFindingsUseCase{store: store, vocab: vocab, logger: logger}
}

func (uc *ImportFindingsUseCase) Import(ctx context.Context, rows []FindingRow) (*ImportReport, error) {
	report := &ImportReport{}
	for _, row := range rows {
		finding, err := uc.buildFinding(row)
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{Row: row.Row, Message: err.Error()})
			continue
		}
		if err := uc.store.Create(ctx, finding); err != nil {
			return report, fmt.Errorf("store finding from row %d: %w", row.Row, err)
		}
		report.Imported++
	}

	uc.logger.Info("findings import finished",
		"imported", report.Imported,
		"row_errors", len(report.RowErrors),
	)
	return report, nil
}

func (uc *ImportFindingsUseCase) buildFinding(row FindingRow) (*domain.Finding, error) {
	title := strings.TrimSpace(row.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	severity, ok := uc.vocab.SeverityFor(row.Severity)
	if !ok {
		if parsed, valid := domain.ParseSeverity(strings.TrimSpace(row.Severity)); valid {
			severity = parsed
		} else {
			return nil, fmt.Errorf("unknown severity %q", row.Severity)
		}
	}

	status, ok := uc.vocab.StatusFor(row.Status)
	if !ok {
		if parsed, valid := domain.ParseStatus(strings.TrimSpace(row.Status)); valid {
			status = parsed
		} else {
			return nil, fmt.Errorf("unknown status %q", row.Status)
		}
	}

	department := strings.TrimSpace(row.Department)
	if canonical, found := uc.vocab.CanonicalDepartment(department); found {
		department = canonical
	}

	now := time.Now().UTC()
	return &domain.Finding{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(row.Description),
		Recommendation: strings.TrimSpace(row.Recommendation),
		Severity:       severity,
		Status:         status,
		Department:     department,
		ProjectType:    strings.TrimSpace(row.ProjectType),
		Year:           row.Year,
		RiskScore:      row.RiskScore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
