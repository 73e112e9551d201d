package survey

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for survey records.
type Repository interface {
	Create(ctx context.Context, rec *DrugRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*DrugRecord, error)
	List(ctx context.Context, limit, offset int) ([]*DrugRecord, int, error)
	Update(ctx context.Context, id uuid.UUID, upd *RecordUpdate, actor string) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Search(ctx context.Context, f SearchFilters, limit, offset int) ([]*DrugRecord, int, error)
	SearchArea(ctx context.Context, f AreaFilters, limit, offset int) ([]*DrugRecord, int, error)
	SearchAdvanced(ctx context.Context, f AdvancedFilters, limit, offset int) ([]*DrugRecord, int, error)

	Provinces(ctx context.Context) ([]string, error)
	Amphoes(ctx context.Context, province string) ([]string, error)
	Tambons(ctx context.Context, province, amphoe string) ([]string, error)

	SetReportStatus(ctx context.Context, id uuid.UUID, status, filePath, actor string) error
}
