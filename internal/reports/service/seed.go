package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/reports/domain"
)

// Seed upserts the report definitions by name. Reports missing from defs are left alone.
func Seed(ctx context.Context, svc domain.Service, defs []config.ReportDefinition) error {
	var seedErr error
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			name = slug.Make(def.PrettyName)
		}

		_, err := svc.GetReport(ctx, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_, err = svc.CreateReport(ctx, domain.CreateRequest{
				Name:             name,
				PrettyName:       def.PrettyName,
				SourceTableName:  def.SourceTableName,
				RefreshProcedure: def.RefreshProcedure,
				RefreshFrequency: def.RefreshFrequency,
			})
		case err == nil:
			_, err = svc.UpdateReport(ctx, name, domain.UpdateRequest{
				PrettyName:       &def.PrettyName,
				SourceTableName:  &def.SourceTableName,
				RefreshProcedure: &def.RefreshProcedure,
				RefreshFrequency: &def.RefreshFrequency,
			})
		}
		if err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("seed report %s: %w", name, err))
		}
	}
	return seedErr
}
