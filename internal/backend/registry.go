package backend

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/errors"
)

type member struct {
	backend Backend
	standby bool
}

// Registry is the ordered set of configured backends. Order is
// declaration order and drives result order and vote tie-breaks.
// A Registry is immutable once built and safe for concurrent reads.
type Registry struct {
	members []member
	index   map[string]int
}

// NewRegistry builds a registry from backends in the given order.
// Empty and duplicate ids are rejected.
func NewRegistry(backends ...Backend) (*Registry, error) {
	members := make([]member, len(backends))
	for i, b := range backends {
		members[i] = member{backend: b}
	}
	return newRegistry(members)
}

func newRegistry(members []member) (*Registry, error) {
	r := &Registry{
		members: members,
		index:   make(map[string]int, len(members)),
	}
	for i, m := range members {
		if m.backend == nil {
			return nil, errors.NewValidationError("backend cannot be nil").WithField(fmt.Sprintf("backends[%d]", i))
		}
		id := m.backend.ID()
		if strings.TrimSpace(id) == "" {
			return nil, errors.NewValidationError("backend id cannot be empty").
				WithField(fmt.Sprintf("backends[%d].id", i)).WithValue(id)
		}
		if _, dup := r.index[id]; dup {
			return nil, errors.NewValidationError("duplicate backend id").
				WithField(fmt.Sprintf("backends[%d].id", i)).WithValue(id)
		}
		r.index[id] = i
	}
	return r, nil
}

// NewRegistryFromConfig builds every declared backend in declaration order.
func NewRegistryFromConfig(cfgs []config.BackendConfig, lookup KeyLookup, opts ...Option) (*Registry, error) {
	members := make([]member, 0, len(cfgs))
	for i, bc := range cfgs {
		b, err := New(bc, lookup, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "backends[%d]", i)
		}
		members = append(members, member{backend: b, standby: bc.Standby})
	}
	return newRegistry(members)
}

// Len returns the number of backends.
func (r *Registry) Len() int { return len(r.members) }

// Get returns the backend with the given id.
func (r *Registry) Get(id string) (Backend, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.members[i].backend, true
}

// Lookup returns the backend with the given id or a ValidationError
// naming the role it was wanted for.
func (r *Registry) Lookup(role, id string) (Backend, error) {
	b, ok := r.Get(id)
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("no backend registered for %s", role)).
			WithField(role).WithValue(id)
	}
	return b, nil
}

// IDs returns the backend ids in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.members))
	for i, m := range r.members {
		ids[i] = m.backend.ID()
	}
	return ids
}

// Backends returns the backends in registry order.
func (r *Registry) Backends() []Backend {
	out := make([]Backend, len(r.members))
	for i, m := range r.members {
		out[i] = m.backend
	}
	return out
}

// Standby reports whether id is a standby backend.
func (r *Registry) Standby(id string) bool {
	i, ok := r.index[id]
	return ok && r.members[i].standby
}

// Ensemble returns the registry of backends that take part in dispatch
// rounds, i.e. every non-standby backend.
func (r *Registry) Ensemble() *Registry {
	members := make([]member, 0, len(r.members))
	for _, m := range r.members {
		if !m.standby {
			members = append(members, member{backend: m.backend})
		}
	}
	out, _ := newRegistry(members)
	return out
}

// Filter returns the backends whose id matches any of the glob patterns,
// in registry order. No patterns returns r itself.
func (r *Registry) Filter(patterns []string) (*Registry, error) {
	if len(patterns) == 0 {
		return r, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.NewValidationError("invalid backend pattern").
				WithField("only").WithValue(p).WithCause(err)
		}
		globs = append(globs, g)
	}

	var members []member
	for _, m := range r.members {
		for _, g := range globs {
			if g.Match(m.backend.ID()) {
				members = append(members, m)
				break
			}
		}
	}
	if len(members) == 0 {
		return nil, errors.NewValidationError("no backend matches").
			WithField("only").WithValue(strings.Join(patterns, ","))
	}
	return newRegistry(members)
}
