package costledger

import (
	"github.com/smallbiznis/agentdesk/internal/costledger/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("costledger",
	fx.Provide(repository.NewRepository),
)
