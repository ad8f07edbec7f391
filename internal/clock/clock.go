// Package clock provides the time source used for row timestamps.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so derived timestamps are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock in UTC.
func System() Clock { return systemClock{} }

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(System),
)
