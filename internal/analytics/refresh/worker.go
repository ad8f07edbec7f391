// Package refresh drives periodic snapshot rebuilds.
package refresh

import (
	"context"
	"time"

	"github.com/smallbiznis/agentdesk/internal/analytics/domain"
	"github.com/smallbiznis/agentdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
	Holder  *config.AnalyticsConfigHolder
}

type Worker struct {
	log     *zap.Logger
	service domain.Service
	holder  *config.AnalyticsConfigHolder
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:     p.Log.Named("analytics.refresh"),
		service: p.Service,
		holder:  p.Holder,
	}
}

// RunForever refreshes on the configured cadence until ctx is cancelled.
// The interval is re-read each cycle so config reloads take effect without
// a restart.
func (w *Worker) RunForever(ctx context.Context) {
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("snapshot refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.holder.Get().RefreshInterval):
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.holder.Get().RunTimeout)
	defer cancel()

	return w.service.Refresh(ctx)
}
