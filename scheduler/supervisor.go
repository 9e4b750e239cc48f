package scheduler

import (
	"context"
)

type ScheduleSupervisor struct {
	Schedulers []PulseSchedulerInterface
}

func NewScheduleSupervisor(schedulers []PulseSchedulerInterface) *ScheduleSupervisor {
	return &ScheduleSupervisor{
		Schedulers: schedulers,
	}
}

func (c *ScheduleSupervisor) Start(ctx context.Context) {
	for _, scheduler := range c.Schedulers {
		scheduler.Start(ctx)()
	}
}

func (c *ScheduleSupervisor) Stop() {
	for _, scheduler := range c.Schedulers {
		scheduler.Stop()()
	}
}
