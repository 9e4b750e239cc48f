package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/PavelAgarkov/halt-pkg/utils"
)

// PulseConfiguration описывает скважность: Target работает Run, затем
// стоит на паузе Pause, и так по кругу, пока планировщик не остановят.
type PulseConfiguration struct {
	Name   string
	Target string
	Group  bool
	Run    time.Duration
	Pause  time.Duration
}

type pulse struct {
	name   string
	rmu    sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	target string
	group  bool
	run    time.Duration
	pause  time.Duration
	wg     sync.WaitGroup
}

type PulseScheduler struct {
	mu      sync.Mutex
	started bool
	pulses  map[string]*pulse
	remotes registry.RemoteRegistry
}

func NewPulseScheduler(remotes registry.RemoteRegistry) *PulseScheduler {
	if remotes == nil {
		panic("scheduler.NewPulseScheduler: nil registry")
	}
	return &PulseScheduler{
		pulses:  make(map[string]*pulse),
		remotes: remotes,
	}
}

func (s *PulseScheduler) Add(cfg PulseConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler.Add(%s): already started", cfg.Name)
	}
	if _, exists := s.pulses[cfg.Name]; exists {
		return fmt.Errorf("scheduler.Add(%s): pulse already exists", cfg.Name)
	}
	if cfg.Run <= 0 || cfg.Pause <= 0 {
		return fmt.Errorf("scheduler.Add(%s): run and pause windows must be positive", cfg.Name)
	}

	s.pulses[cfg.Name] = &pulse{
		name:   cfg.Name,
		target: cfg.Target,
		group:  cfg.Group,
		run:    cfg.Run,
		pause:  cfg.Pause,
	}
	return nil
}

func (s *PulseScheduler) Start(ctx context.Context) func() {
	return func() {
		s.mu.Lock()
		if s.started {
			s.mu.Unlock()
			logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
				Msg:       "scheduler.start",
				Component: "scheduler",
				Method:    "Start",
			})
			return
		}
		s.started = true

		// Сохраним локальную копию pulse-ов и освободим глобальный лок
		pulses := make(map[string]*pulse, len(s.pulses))
		for name, p := range s.pulses {
			pulses[name] = p
		}
		s.mu.Unlock()

		// Дальше – без глобального лока
		for name, p := range pulses {
			p.rmu.Lock()
			p.ctx, p.cancel = context.WithCancel(ctx)
			p.wg.Add(1)
			p.rmu.Unlock()

			utils.GoRecover(ctx, func(ctx context.Context) {
				s.run(name, p)
			})
		}
	}
}

// Stop останавливает пульсы и дожидается их завершения.
func (s *PulseScheduler) Stop() func() {
	return func() {
		s.mu.Lock()
		if !s.started {
			s.mu.Unlock()
			return
		}
		s.started = false

		for _, p := range s.pulses {
			p.cancel()
		}

		// копия слайса, чтобы ждать уже без глобального лока
		pulses := make([]*pulse, 0, len(s.pulses))
		for _, p := range s.pulses {
			pulses = append(pulses, p)
		}
		s.mu.Unlock()

		for _, p := range pulses {
			p.wg.Wait()
		}
	}
}

func (s *PulseScheduler) run(name string, p *pulse) {
	defer p.wg.Done()
	// после остановки пульса цель не должна остаться замороженной
	defer func() { _ = s.apply(p, registry.OpResume) }()

	for {
		p.rmu.RLock()
		ctx := p.ctx
		p.rmu.RUnlock()

		if err := s.apply(p, registry.OpResume); err != nil {
			s.logApplyError(ctx, name, err)
		}
		if utils.WaitOrCtx(ctx, p.run) != nil {
			logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
				Msg:       "Pulse stopped",
				Component: "scheduler",
				Method:    "run",
				Args:      name,
			})
			return
		}

		if err := s.apply(p, registry.OpPause); err != nil {
			s.logApplyError(ctx, name, err)
		}
		if utils.WaitOrCtx(ctx, p.pause) != nil {
			logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
				Msg:       "Pulse stopped",
				Component: "scheduler",
				Method:    "run",
				Args:      name,
			})
			return
		}
	}
}

func (s *PulseScheduler) apply(p *pulse, op registry.Op) error {
	if p.group {
		_, err := s.remotes.ApplyGroup(op, p.target)
		return err
	}
	_, err := s.remotes.Apply(op, p.target)
	return err
}

func (s *PulseScheduler) logApplyError(ctx context.Context, name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
		Msg:       "Pulse transition failed",
		Component: "scheduler",
		Method:    "run",
		Args:      name,
		Error:     err,
	})
}
