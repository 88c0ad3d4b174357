package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, cfg *ReportConfiguration) error
	Update(ctx context.Context, db *gorm.DB, cfg *ReportConfiguration) error
	Delete(ctx context.Context, db *gorm.DB, name string) (int64, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*ReportConfiguration, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]ReportConfiguration, error)
	// List returns up to limit configurations with an id greater than afterID, in id order.
	List(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]ReportConfiguration, error)
}
