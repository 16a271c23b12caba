package ports

import (
	"context"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
)

// CheckResultRepository persists check run outcomes
type CheckResultRepository interface {
	Create(ctx context.Context, result *tabular.CheckResult) error
	GetByID(ctx context.Context, id core.ResultID) (*tabular.CheckResult, error)
	ListRecent(ctx context.Context, limit int) ([]*tabular.CheckResult, error)
}
