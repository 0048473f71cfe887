package repository

import (
	"context"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
)

type Repository struct {
	db      Database
	metrics *metrics.Metrics
	queries *QueryRegistry
}

// EmployeeRepoIface represents the interface for interacting with employee data in the repository.
type EmployeeRepoIface interface {
	Save(ctx context.Context, employee models.Employee) (models.Employee, error)
	FindAll(ctx context.Context) ([]models.Employee, error)
	FindByID(ctx context.Context, identifier int64) (models.Employee, bool, error)
	FindByEmail(ctx context.Context, email string) (models.Employee, bool, error)
	DeleteByID(ctx context.Context, identifier int64) error
	FindByJPQL(ctx context.Context, firstName, lastName string) (models.Employee, error)
	FindByJPQLNamedParams(ctx context.Context, firstName, lastName string) (models.Employee, error)
	FindByNativeSQL(ctx context.Context, firstName, lastName string) (models.Employee, error)
	FindByNativeSQLNamedParams(ctx context.Context, firstName, lastName string) (models.Employee, error)
}

// NewEmployeeRepository returns an employee store backed by db. Queries come from the
// registry compiled at startup.
func NewEmployeeRepository(db Database, metrics *metrics.Metrics) EmployeeRepoIface {
	return &Repository{db: db, metrics: metrics, queries: employeeQueries}
}
