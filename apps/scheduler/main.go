package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/config"
	"github.com/workhive/workhive/internal/identity"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/notification"
	"github.com/workhive/workhive/internal/observability"
	"github.com/workhive/workhive/internal/providers/email"
	"github.com/workhive/workhive/internal/reminder"
	"github.com/workhive/workhive/pkg/db"
	"go.uber.org/fx"
)

// Headless worker: verification reminders and digest sweeps, no HTTP.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		identity.Module,
		notification.Module,
		email.Module,
		reminder.Module,
		reminder.TickerModule,
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
