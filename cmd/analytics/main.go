package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/analytics/internal/analytics"
	"github.com/smallbiznis/analytics/internal/clock"
	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/migration"
	"github.com/smallbiznis/analytics/internal/observability"
	"github.com/smallbiznis/analytics/internal/reports"
	"github.com/smallbiznis/analytics/internal/server"
	"github.com/smallbiznis/analytics/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		analytics.Module,
		reports.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
