package analytics

import (
	"context"

	"github.com/smallbiznis/agentdesk/internal/analytics/refresh"
	"github.com/smallbiznis/agentdesk/internal/analytics/repository"
	"github.com/smallbiznis/agentdesk/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
		refresh.NewWorker,
	),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *refresh.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go worker.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
