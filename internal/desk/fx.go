package desk

import (
	"github.com/smallbiznis/agentdesk/internal/desk/repository"
	"github.com/smallbiznis/agentdesk/internal/desk/service"
	"go.uber.org/fx"
)

var Module = fx.Module("desk",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
