package organization

import (
	"github.com/smallbiznis/agentdesk/internal/organization/repository"
	"github.com/smallbiznis/agentdesk/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
