package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/analytics"
	"github.com/smallbiznis/agentdesk/internal/clock"
	"github.com/smallbiznis/agentdesk/internal/config"
	"github.com/smallbiznis/agentdesk/internal/costledger"
	"github.com/smallbiznis/agentdesk/internal/desk"
	"github.com/smallbiznis/agentdesk/internal/migration"
	"github.com/smallbiznis/agentdesk/internal/observability/metrics"
	"github.com/smallbiznis/agentdesk/internal/organization"
	"github.com/smallbiznis/agentdesk/internal/session"
	"github.com/smallbiznis/agentdesk/internal/task"
	"github.com/smallbiznis/agentdesk/pkg/db"
	"github.com/smallbiznis/agentdesk/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,

		organization.Module,
		desk.Module,
		task.Module,
		costledger.Module,
		session.Module,
		analytics.Module,
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
