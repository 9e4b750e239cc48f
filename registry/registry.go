package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/utils"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("registry: remote not found")
	ErrUnknownOp = errors.New("registry: unknown op")
)

type Op int

const (
	OpPause Op = iota
	OpResume
	OpStop
	OpStopIfPaused
)

func (op Op) String() string {
	switch op {
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpStop:
		return "stop"
	case OpStopIfPaused:
		return "stop_if_paused"
	default:
		return "unknown"
	}
}

func ParseOp(s string) (Op, error) {
	switch s {
	case "pause":
		return OpPause, nil
	case "resume":
		return OpResume, nil
	case "stop":
		return OpStop, nil
	case "stop_if_paused":
		return OpStopIfPaused, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, s)
	}
}

type Registry struct {
	mu      sync.RWMutex
	remotes map[string]halt.Remote
	groups  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		remotes: make(map[string]halt.Remote),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (reg *Registry) Register(name string, remote halt.Remote, groups ...string) error {
	if name == "" {
		return fmt.Errorf("registry.Register: empty name")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.remotes[name]; exists {
		return fmt.Errorf("registry.Register(%s): already registered", name)
	}
	reg.remotes[name] = remote

	for _, g := range utils.Distinct(groups) {
		if g == "" {
			continue
		}
		members, ok := reg.groups[g]
		if !ok {
			members = make(map[string]struct{})
			reg.groups[g] = members
		}
		members[name] = struct{}{}
	}
	return nil
}

func (reg *Registry) RegisterAnonymous(remote halt.Remote, groups ...string) (string, error) {
	name := uuid.NewString()
	if err := reg.Register(name, remote, groups...); err != nil {
		return "", err
	}
	return name, nil
}

func (reg *Registry) Unregister(name string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.remotes[name]; !exists {
		return false
	}
	delete(reg.remotes, name)

	for g, members := range reg.groups {
		delete(members, name)
		if len(members) == 0 {
			delete(reg.groups, g)
		}
	}
	return true
}

func (reg *Registry) Get(name string) (halt.Remote, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	remote, ok := reg.remotes[name]
	return remote, ok
}

func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return utils.SortedKeys(reg.remotes)
}

func (reg *Registry) Groups() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return utils.SortedKeys(reg.groups)
}

func (reg *Registry) Members(group string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	members, ok := reg.groups[group]
	if !ok {
		return nil
	}
	return utils.SortedKeys(members)
}

func (reg *Registry) Apply(op Op, name string) (bool, error) {
	remote, ok := reg.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	changed, err := dispatch(op, remote)
	if err != nil {
		return false, err
	}
	if changed {
		logger.WriteInfoLog(context.Background(), &logger_wrapper.LogEntry{
			Msg:       "remote state changed",
			Component: "registry",
			Method:    "Apply",
			Args:      fmt.Sprintf("name: %s, op: %s", name, op),
			State:     remote.State().String(),
		})
	}
	return changed, nil
}

func (reg *Registry) ApplyGroup(op Op, group string) (int, error) {
	members := reg.Members(group)
	if members == nil {
		return 0, fmt.Errorf("%w: group %s", ErrNotFound, group)
	}

	changed := 0
	for _, name := range members {
		ok, err := reg.Apply(op, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

func (reg *Registry) ApplyAll(op Op) int {
	changed := 0
	for _, name := range reg.Names() {
		ok, err := reg.Apply(op, name)
		if err != nil {
			continue
		}
		if ok {
			changed++
		}
	}
	return changed
}

func (reg *Registry) Snapshot() map[string]halt.State {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	snap := make(map[string]halt.State, len(reg.remotes))
	for name, remote := range reg.remotes {
		snap[name] = remote.State()
	}
	return snap
}

func dispatch(op Op, remote halt.Remote) (bool, error) {
	switch op {
	case OpPause:
		return remote.Pause(), nil
	case OpResume:
		return remote.Resume(), nil
	case OpStop:
		return remote.Stop(), nil
	case OpStopIfPaused:
		return remote.StopIfPaused(), nil
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
}
