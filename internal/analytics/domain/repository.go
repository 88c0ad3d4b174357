package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository writes and reads fact tables by account scope. Callers group calls in db.Transaction.
type Repository interface {
	// Create inserts rows, a slice of the table's model type. An empty slice is a no-op.
	Create(ctx context.Context, db *gorm.DB, table FactTable, rows any) error
	// ListByAccountScope fills dest, a pointer to a slice of the table's model type.
	ListByAccountScope(ctx context.Context, db *gorm.DB, table FactTable, scope AccountScope, dest any) error
	DeleteByAccountScope(ctx context.Context, db *gorm.DB, table FactTable, scope AccountScope) (int64, error)
}
