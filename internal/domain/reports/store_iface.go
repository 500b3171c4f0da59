package reports

import (
	"context"

	"staffdesk/internal/domain/compliance"
)

type StoreAPI interface {
	Create(ctx context.Context, report Report) (Report, error)
	List(ctx context.Context, filter Filter) ([]Report, error)
	ForDay(ctx context.Context, employeeID, reportDate string) (Report, error)
	CountByStatus(ctx context.Context, employeeID string) (map[compliance.Status]int, error)
	DeleteByEmployee(ctx context.Context, employeeID string) error
}
