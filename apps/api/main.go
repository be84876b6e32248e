package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/config"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/observability"
	"github.com/workhive/workhive/internal/server"
	"github.com/workhive/workhive/pkg/db"
	"go.uber.org/fx"
)

// API-only binary. Reminders run in apps/scheduler; this process still serves
// the on-demand admin trigger.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

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
