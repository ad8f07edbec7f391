package task

import (
	"github.com/smallbiznis/agentdesk/internal/task/repository"
	"github.com/smallbiznis/agentdesk/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
