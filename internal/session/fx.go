package session

import (
	"github.com/smallbiznis/agentdesk/internal/session/repository"
	"github.com/smallbiznis/agentdesk/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
