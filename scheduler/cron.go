package scheduler

import (
	"context"
	"fmt"

	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/robfig/cron/v3"
)

type Cron struct {
	c *cron.Cron
}

func NewCron() *Cron {
	return &Cron{
		c: cron.New(cron.WithSeconds()),
	}
}

// Add "*/10 * * * * *" - каждые 10 секунд
func (c *Cron) Add(ctx context.Context, calendar string, fn func(ctx context.Context) error) {
	_, err := c.c.AddFunc(calendar, func() {
		if err := fn(ctx); err != nil {
			logger.WriteErrorLog(ctx, &logger_wrapper.LogEntry{
				Msg:       "cron job failed",
				Component: "cron",
				Method:    "Add",
				Args:      calendar,
				Error:     err,
			})
		}
	})
	if err != nil {
		panic(fmt.Sprintf("failed to add cron job %s: %v", calendar, err))
	}
}

// WindowConfig задаёт окно обслуживания: по PauseSpec цель ставится на
// паузу, по ResumeSpec снимается с неё.
type WindowConfig struct {
	Name       string
	Target     string
	Group      bool
	PauseSpec  string
	ResumeSpec string
}

func (c *Cron) AddWindow(ctx context.Context, remotes registry.RemoteRegistry, cfg WindowConfig) {
	if remotes == nil {
		panic(fmt.Sprintf("cron.AddWindow(%s): nil registry", cfg.Name))
	}

	c.Add(ctx, cfg.PauseSpec, func(ctx context.Context) error {
		return windowApply(ctx, remotes, cfg, registry.OpPause)
	})
	c.Add(ctx, cfg.ResumeSpec, func(ctx context.Context) error {
		return windowApply(ctx, remotes, cfg, registry.OpResume)
	})
}

func windowApply(ctx context.Context, remotes registry.RemoteRegistry, cfg WindowConfig, op registry.Op) error {
	var (
		changed int
		err     error
	)
	if cfg.Group {
		changed, err = remotes.ApplyGroup(op, cfg.Target)
	} else {
		var ok bool
		ok, err = remotes.Apply(op, cfg.Target)
		if ok {
			changed = 1
		}
	}
	if err != nil {
		return fmt.Errorf("window %s: %s %s: %w", cfg.Name, op, cfg.Target, err)
	}

	logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
		Msg:       "maintenance window fired",
		Component: "cron",
		Method:    "AddWindow",
		Args:      fmt.Sprintf("window: %s, op: %s, target: %s, changed: %d", cfg.Name, op, cfg.Target, changed),
	})
	return nil
}

func (c *Cron) Stop() {
	c.c.Stop()
}

func (c *Cron) Start() {
	c.c.Start()
}
