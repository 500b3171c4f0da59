package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"staffdesk/internal/domain/compliance"
	"staffdesk/internal/platform/metrics"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound        = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already submitted for this day")
	ErrInvalidDate     = errors.New("invalid report date")
	ErrFutureDate      = fmt.Errorf("%w: date is after today", ErrInvalidDate)
	ErrInvalidStatus   = errors.New("invalid compliance status")
	ErrEmptyReport     = errors.New("report text is required")
	ErrInvalidFormat   = errors.New("unsupported export format")
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

type Service struct {
	Store      StoreAPI
	Classifier compliance.Classifier
	Metrics    *metrics.Collector
	Now        func() time.Time
}

func NewService(store StoreAPI, classifier compliance.Classifier, collector *metrics.Collector) *Service {
	return &Service{Store: store, Classifier: classifier, Metrics: collector, Now: time.Now}
}

func (s *Service) location() *time.Location {
	if s.Classifier.Location == nil {
		return time.UTC
	}
	return s.Classifier.Location
}

// Today is the current calendar date in the classifier's location.
func (s *Service) Today() string {
	return s.Now().In(s.location()).Format(dateLayout)
}

// Submit classifies the report by the server clock and stores it. The report
// date defaults to today; a future date is rejected and a report for an
// earlier day counts as FullUnpaidLeave.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Report, error) {
	text := strings.TrimSpace(in.ReportText)
	if text == "" {
		return Report{}, ErrEmptyReport
	}
	now := s.Now()
	today := now.In(s.location()).Format(dateLayout)
	reportDate := today
	if in.ReportDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, in.ReportDate, s.location())
		if err != nil {
			return Report{}, ErrInvalidDate
		}
		reportDate = parsed.Format(dateLayout)
		if reportDate > today {
			return Report{}, fmt.Errorf("%w: %s", ErrFutureDate, reportDate)
		}
	}

	status := s.Classifier.Classify(now)
	if reportDate < today {
		status = compliance.StatusFullUnpaidLeave
	}
	created, err := s.Store.Create(ctx, Report{
		EmployeeID:       in.EmployeeID,
		ReportText:       text,
		ReportDate:       reportDate,
		SubmissionTime:   now,
		ComplianceStatus: status,
	})
	if err != nil {
		return Report{}, err
	}
	s.Metrics.Outcome("report_status", string(status))
	return created, nil
}

// NormalizeFilter validates the optional date bounds and status.
func NormalizeFilter(filter Filter) (Filter, error) {
	for _, value := range []string{filter.FromDate, filter.ToDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return Filter{}, ErrInvalidDate
		}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return Filter{}, fmt.Errorf("%w: %s", ErrInvalidStatus, filter.Status)
	}
	return filter, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Report, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.Store.List(ctx, filter)
}

func (s *Service) TodayFor(ctx context.Context, employeeID string) (Report, error) {
	return s.Store.ForDay(ctx, employeeID, s.Today())
}

func (s *Service) Stats(ctx context.Context, employeeID string) (Stats, error) {
	counts, err := s.Store.CountByStatus(ctx, employeeID)
	if err != nil {
		return Stats{}, err
	}
	return statsFromCounts(counts), nil
}

func (s *Service) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return s.Store.DeleteByEmployee(ctx, employeeID)
}

// Export writes the filtered reports in format and returns the content type.
func (s *Service) Export(ctx context.Context, filter Filter, format string, w io.Writer) (string, error) {
	var write func(io.Writer, []Report) error
	var contentType string
	switch format {
	case FormatXLSX:
		write, contentType = WriteXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		write, contentType = WritePDF, "application/pdf"
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	reports, err := s.List(ctx, filter)
	if err != nil {
		return "", err
	}
	if err := write(w, reports); err != nil {
		return "", fmt.Errorf("export reports: %w", err)
	}
	return contentType, nil
}
