package scheduler

import (
	"context"
)

type PulseSchedulerInterface interface {
	Add(cfg PulseConfiguration) error
	Stop() func()
	Start(ctx context.Context) func()
}
