package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const createBatchSize = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, table domain.FactTable, rows any) error {
	if _, ok := domain.LookupTable(table); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownFactTable, table)
	}
	value := reflect.ValueOf(rows)
	if value.Kind() != reflect.Slice {
		return fmt.Errorf("create %s: rows must be a slice, got %T", table, rows)
	}
	if value.Len() == 0 {
		return nil
	}
	return db.WithContext(ctx).Table(string(table)).CreateInBatches(rows, createBatchSize).Error
}

func (r *repo) ListByAccountScope(ctx context.Context, db *gorm.DB, table domain.FactTable, scope domain.AccountScope, dest any) error {
	spec, ok := domain.LookupTable(table)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownFactTable, table)
	}
	return db.WithContext(ctx).
		Table(string(table)).
		Where("account_record_id = ? AND tenant_record_id = ?", scope.AccountRecordID, scope.TenantRecordID).
		Order(spec.OrderBy).
		Find(dest).Error
}

func (r *repo) DeleteByAccountScope(ctx context.Context, db *gorm.DB, table domain.FactTable, scope domain.AccountScope) (int64, error) {
	if _, ok := domain.LookupTable(table); !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownFactTable, table)
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM ? WHERE account_record_id = ? AND tenant_record_id = ?`,
		clause.Table{Name: string(table)},
		scope.AccountRecordID,
		scope.TenantRecordID,
	)
	return result.RowsAffected, result.Error
}

// Migrate creates every fact table from its model. Used where SQL migrations do not apply.
func Migrate(db *gorm.DB) error {
	for _, spec := range domain.TableSpecs() {
		if err := db.Table(string(spec.Table)).AutoMigrate(spec.Model); err != nil {
			return fmt.Errorf("migrate %s: %w", spec.Table, err)
		}
	}
	return nil
}
