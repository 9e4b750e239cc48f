package registry

import (
	"github.com/PavelAgarkov/halt-pkg/halt"
)

type RemoteRegistry interface {
	Register(name string, remote halt.Remote, groups ...string) error
	RegisterAnonymous(remote halt.Remote, groups ...string) (string, error)
	Unregister(name string) bool
	Get(name string) (halt.Remote, bool)
	Names() []string
	Groups() []string
	Members(group string) []string
	Apply(op Op, name string) (bool, error)
	ApplyGroup(op Op, group string) (int, error)
	ApplyAll(op Op) int
	Snapshot() map[string]halt.State
}
