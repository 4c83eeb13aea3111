package http

import (
	"context"
	"io"

	"loanlens/internal/services"
	"loanlens/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handler needs
type DashboardServiceInterface interface {
	LoadWorkbook(ctx context.Context, r io.Reader, sourceFilename string) (*domain.LoanTable, error)
	Table(ctx context.Context) (*domain.LoanTable, error)
	Loan(ctx context.Context, id string) (*services.LoanDetail, error)
	APRComparison(ctx context.Context, id string) ([]services.APRPoint, error)
	Projection(ctx context.Context, id string) ([]services.ProjectionPoint, error)
	Stats(ctx context.Context) (*services.StatsView, error)
	Distribution(ctx context.Context) ([]services.DistributionPoint, error)
}
