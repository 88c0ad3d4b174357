package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, cfg *domain.ReportConfiguration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO analytics_reports (id, report_name, report_pretty_name, source_table_name, refresh_procedure_name, refresh_frequency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID,
		cfg.Name,
		cfg.PrettyName,
		cfg.SourceTableName,
		cfg.RefreshProcedure,
		cfg.RefreshFrequency,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, cfg *domain.ReportConfiguration) error {
	if cfg == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE analytics_reports
		 SET report_pretty_name = ?, source_table_name = ?, refresh_procedure_name = ?, refresh_frequency = ?, updated_at = ?
		 WHERE report_name = ?`,
		cfg.PrettyName,
		cfg.SourceTableName,
		cfg.RefreshProcedure,
		cfg.RefreshFrequency,
		cfg.UpdatedAt,
		cfg.Name,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM analytics_reports WHERE report_name = ?`, name)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.ReportConfiguration, error) {
	var cfg domain.ReportConfiguration
	err := db.WithContext(ctx).Raw(
		`SELECT id, report_name, report_pretty_name, source_table_name, refresh_procedure_name, refresh_frequency, created_at, updated_at
		 FROM analytics_reports WHERE report_name = ?`,
		name,
	).Scan(&cfg).Error
	if err != nil {
		return nil, err
	}
	if cfg.ID == 0 {
		return nil, nil
	}
	return &cfg, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.ReportConfiguration, error) {
	var items []domain.ReportConfiguration
	err := db.WithContext(ctx).Raw(
		`SELECT id, report_name, report_pretty_name, source_table_name, refresh_procedure_name, refresh_frequency, created_at, updated_at
		 FROM analytics_reports ORDER BY report_name ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]domain.ReportConfiguration, error) {
	var items []domain.ReportConfiguration
	err := db.WithContext(ctx).
		Model(&domain.ReportConfiguration{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
