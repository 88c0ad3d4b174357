package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/smallbiznis/analytics/internal/reports/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Directory serves an immutable snapshot of the report configurations. Readers take one
// snapshot per request; reloads swap it atomically.
type Directory struct {
	db       *gorm.DB
	repo     domain.Repository
	log      *zap.Logger
	snapshot atomic.Value // holds domain.Snapshot
}

func NewDirectory(db *gorm.DB, repo domain.Repository, log *zap.Logger) *Directory {
	d := &Directory{
		db:   db,
		repo: repo,
		log:  log.Named("reports.directory"),
	}
	d.snapshot.Store(domain.Snapshot{})
	return d
}

func (d *Directory) Snapshot() domain.Snapshot {
	snap, _ := d.snapshot.Load().(domain.Snapshot)
	return snap
}

// Reload replaces the snapshot with the stored configurations. On error the previous
// snapshot stays in place.
func (d *Directory) Reload(ctx context.Context) error {
	items, err := d.repo.FindAll(ctx, d.db)
	if err != nil {
		return err
	}
	snap := make(domain.Snapshot, len(items))
	for _, item := range items {
		snap[item.Name] = item
	}
	d.snapshot.Store(snap)
	return nil
}

// Run reloads every interval until ctx is done.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Reload(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn("report configuration reload failed", zap.Error(err))
			}
		}
	}
}
